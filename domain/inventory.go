package domain

import "time"

// InventoryBatch is a lot of one medicine received together. Quantity is only
// ever decremented by order settlement.
type InventoryBatch struct {
	ID           int64     `db:"id" json:"id"`
	MedicineID   int64     `db:"medicine_id" json:"medicine_id"`
	BatchNumber  string    `db:"batch_number" json:"batch_number"`
	Quantity     int64     `db:"quantity" json:"quantity"`
	ExpiryDate   time.Time `db:"expiry_date" json:"expiry_date"`
	ReorderLevel int64     `db:"reorder_level" json:"reorder_level"`
	ReceivedAt   time.Time `db:"received_at" json:"received_at"`
}

// LowStock reports whether the batch is at or below its reorder level.
func (b InventoryBatch) LowStock() bool {
	return b.Quantity <= b.ReorderLevel
}

// StockAlert is a batch that needs attention, either because it is running
// low or because it expires soon.
type StockAlert struct {
	InventoryBatch
	MedicineName string `db:"medicine_name" json:"medicine_name"`
	LowStock     bool   `db:"low_stock" json:"low_stock"`
	Expiring     bool   `db:"expiring" json:"expiring"`
}
