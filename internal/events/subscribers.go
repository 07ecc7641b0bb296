package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pharmpos/m/domain"
	"pharmpos/m/internal/logging"
)

// RegisterAuditLog subscribes handlers that write every stock movement and
// low-stock warning to the structured log.
func RegisterAuditLog(b *Bus) {
	b.Subscribe(domain.EventStockMovement, logStockMovement)
	b.Subscribe(domain.EventLowStock, logLowStock)
}

func logStockMovement(ctx context.Context, e domain.Event) error {
	m, ok := e.(domain.StockMovement)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}
	logging.FromContext(ctx).Info("stock_movement",
		zap.Int64("order_id", m.OrderID),
		zap.Int64("batch_id", m.BatchID),
		zap.Int64("medicine_id", m.MedicineID),
		zap.Int64("quantity", -m.Quantity),
		zap.Int64("remaining", m.Remaining),
		zap.Time("occurred_at", m.OccurredAt),
	)
	return nil
}

func logLowStock(ctx context.Context, e domain.Event) error {
	l, ok := e.(domain.LowStock)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}
	logging.FromContext(ctx).Warn("low_stock",
		zap.Int64("batch_id", l.BatchID),
		zap.String("batch_number", l.BatchNumber),
		zap.String("medicine", l.MedicineName),
		zap.Int64("remaining", l.Remaining),
		zap.Int64("reorder_level", l.ReorderLevel),
	)
	return nil
}
