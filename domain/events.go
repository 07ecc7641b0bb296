package domain

import "time"

const (
	EventStockMovement = "inventory.stock_moved"
	EventLowStock      = "inventory.low_stock"
)

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// StockMovement records one batch decrement made by a committed order.
type StockMovement struct {
	OrderID    int64
	BatchID    int64
	MedicineID int64
	Quantity   int64
	Remaining  int64
	OccurredAt time.Time
}

func (StockMovement) EventName() string { return EventStockMovement }

// LowStock is emitted when a sale leaves a batch at or below its reorder level.
type LowStock struct {
	BatchID      int64
	MedicineID   int64
	MedicineName string
	BatchNumber  string
	Remaining    int64
	ReorderLevel int64
	OccurredAt   time.Time
}

func (LowStock) EventName() string { return EventLowStock }
