package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmpos/m/domain"
)

func day(d int) time.Time { return time.Date(2030, 1, d, 0, 0, 0, 0, time.UTC) }

var paracetamol = domain.Medicine{ID: 1, Name: "Paracetamol", UnitPrice: dec("2.00")}

func TestSelectBatchPrefersSmallestQuantity(t *testing.T) {
	batches := []domain.InventoryBatch{
		{ID: 1, MedicineID: 1, Quantity: 8, ExpiryDate: day(1)},
		{ID: 2, MedicineID: 1, Quantity: 2, ExpiryDate: day(9)},
	}
	got, err := SelectBatch(paracetamol, batches, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
}

func TestSelectBatchTieBreaks(t *testing.T) {
	batches := []domain.InventoryBatch{
		{ID: 3, MedicineID: 1, Quantity: 5, ExpiryDate: day(5)},
		{ID: 2, MedicineID: 1, Quantity: 5, ExpiryDate: day(3)},
		{ID: 1, MedicineID: 1, Quantity: 5, ExpiryDate: day(3)},
	}
	got, err := SelectBatch(paracetamol, batches, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	got, err = SelectBatch(paracetamol, batches[:2], nil, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
}

func TestSelectBatchDoesNotSplit(t *testing.T) {
	batches := []domain.InventoryBatch{
		{ID: 1, MedicineID: 1, Quantity: 3, ExpiryDate: day(1)},
		{ID: 2, MedicineID: 1, Quantity: 10, ExpiryDate: day(2)},
	}
	_, err := SelectBatch(paracetamol, batches, nil, 5)

	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(3), stockErr.Available)
	assert.Equal(t, "Paracetamol", stockErr.MedicineName)
}

func TestSelectBatchOutOfStock(t *testing.T) {
	_, err := SelectBatch(paracetamol, nil, nil, 1)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)

	batches := []domain.InventoryBatch{
		{ID: 1, MedicineID: 1, Quantity: 0, ExpiryDate: day(1)},
		{ID: 2, MedicineID: 7, Quantity: 50, ExpiryDate: day(1)},
	}
	_, err = SelectBatch(paracetamol, batches, nil, 1)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
}

func TestSelectBatchAccountsForClaims(t *testing.T) {
	batches := []domain.InventoryBatch{
		{ID: 1, MedicineID: 1, Quantity: 4, ExpiryDate: day(1)},
		{ID: 2, MedicineID: 1, Quantity: 6, ExpiryDate: day(2)},
	}

	got, err := SelectBatch(paracetamol, batches, map[int64]int64{1: 3}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, int64(1), got.Quantity)

	got, err = SelectBatch(paracetamol, batches, map[int64]int64{1: 4}, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, SubmitOrderRequest{CashierID: 1}.Validate(), domain.ErrValidation)

	err := SubmitOrderRequest{CashierID: 1, Items: []CartItem{{MedicineID: 1, Quantity: 0}}}.Validate()
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "items[0].quantity", ve.Field)

	err = SubmitOrderRequest{CashierID: 1, Items: []CartItem{{MedicineID: -2, Quantity: 1}}}.Validate()
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "items[0].medicine_id", ve.Field)

	assert.NoError(t, SubmitOrderRequest{CashierID: 1, Items: []CartItem{{MedicineID: 1, Quantity: 1}}}.Validate())
}
