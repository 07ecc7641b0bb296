package sales

import (
	"sort"

	"pharmpos/m/domain"
)

// SelectBatch picks the batch a cart line is settled from: the eligible batch
// with the smallest quantity on hand, ties broken by earliest expiry and then
// lowest id. claimed holds units already taken from a batch by earlier lines
// of the same cart. A line is never split across batches, so the chosen batch
// must cover qty on its own.
func SelectBatch(med domain.Medicine, batches []domain.InventoryBatch, claimed map[int64]int64, qty int64) (domain.InventoryBatch, error) {
	eligible := make([]domain.InventoryBatch, 0, len(batches))
	for _, b := range batches {
		if b.MedicineID != med.ID {
			continue
		}
		b.Quantity -= claimed[b.ID]
		if b.Quantity > 0 {
			eligible = append(eligible, b)
		}
	}
	if len(eligible) == 0 {
		return domain.InventoryBatch{}, &domain.StockError{
			Kind:         domain.ErrOutOfStock,
			MedicineID:   med.ID,
			MedicineName: med.Name,
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Quantity != b.Quantity {
			return a.Quantity < b.Quantity
		}
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		return a.ID < b.ID
	})

	chosen := eligible[0]
	if chosen.Quantity < qty {
		return domain.InventoryBatch{}, &domain.StockError{
			Kind:         domain.ErrInsufficientStock,
			MedicineID:   med.ID,
			MedicineName: med.Name,
			Available:    chosen.Quantity,
			BatchID:      chosen.ID,
		}
	}
	return chosen, nil
}
