package sales

import (
	"context"
	"time"

	"pharmpos/m/domain"
)

// Tx is the transactional session a settlement runs in. Every method must
// execute inside the same database transaction.
type Tx interface {
	// ResolveAccount returns domain.ErrNotFound when no account has id.
	ResolveAccount(ctx context.Context, id int64) (domain.Account, error)
	// GetMedicine returns domain.ErrNotFound when no medicine has id.
	GetMedicine(ctx context.Context, id int64) (domain.Medicine, error)
	// ListEligibleBatches returns the batches of medicineID with stock on hand.
	ListEligibleBatches(ctx context.Context, medicineID int64) ([]domain.InventoryBatch, error)
	// DecrementBatch removes qty units from the batch only if that many are
	// still on hand, returning the remaining quantity. It returns
	// domain.ErrStockConflict when the guard rejects the update.
	DecrementBatch(ctx context.Context, batchID, qty int64) (int64, error)
	ResolveOrCreatePaymentMethod(ctx context.Context, name string) (domain.PaymentMethod, error)
	InsertOrder(ctx context.Context, order *domain.Order) error
	InsertOrderLine(ctx context.Context, line *domain.OrderLine) error
	InsertPayment(ctx context.Context, payment *domain.Payment) error
}

// TxRunner runs fn inside one transaction, committing when fn returns nil and
// rolling back otherwise.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// OrderReader serves read-only order queries.
type OrderReader interface {
	GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderSummary, int64, error)
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
}

// Store is the persistence the processor needs.
type Store interface {
	TxRunner
	OrderReader
}

// Publisher receives domain events after a settlement commits.
type Publisher interface {
	Publish(ctx context.Context, e domain.Event) error
}

// Recorder collects sales metrics.
type Recorder interface {
	ObserveOrder(outcome string, d time.Duration)
	AddUnitsSold(n int64)
}
