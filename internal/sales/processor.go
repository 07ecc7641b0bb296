package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pharmpos/m/domain"
	"pharmpos/m/internal/logging"
	"pharmpos/m/internal/metrics"
)

const (
	useCaseSubmit = "sales.submit_order"
	useCaseGet    = "sales.get_order"
	spanPrefix    = "UC."
)

// Processor settles carts into orders. It holds no per-call state and is
// safe for concurrent use.
type Processor struct {
	store     Store
	publisher Publisher
	recorder  Recorder
	tracer    trace.Tracer
	log       *zap.Logger
	retries   int
	timeout   time.Duration
	now       func() time.Time
}

type Option func(*Processor)

func WithPublisher(p Publisher) Option { return func(pr *Processor) { pr.publisher = p } }

func WithRecorder(r Recorder) Option { return func(pr *Processor) { pr.recorder = r } }

func WithTracer(t trace.Tracer) Option { return func(pr *Processor) { pr.tracer = t } }

func WithLogger(l *zap.Logger) Option { return func(pr *Processor) { pr.log = l } }

// WithConflictRetries sets how many times a settlement that lost a stock race
// is retried against a fresh snapshot.
func WithConflictRetries(n int) Option {
	return func(pr *Processor) {
		if n >= 0 {
			pr.retries = n
		}
	}
}

// WithTimeout bounds each SubmitOrder call. Zero leaves the caller's deadline.
func WithTimeout(d time.Duration) Option { return func(pr *Processor) { pr.timeout = d } }

// WithClock overrides the order timestamp source.
func WithClock(now func() time.Time) Option { return func(pr *Processor) { pr.now = now } }

func NewProcessor(store Store, opts ...Option) *Processor {
	p := &Processor{
		store:   store,
		tracer:  otel.Tracer("pharmpos/sales"),
		log:     zap.NewNop(),
		retries: 1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// settlement is the result of one committed transaction.
type settlement struct {
	receipt *domain.Receipt
	events  []domain.Event
	units   int64
}

// SubmitOrder validates, prices and atomically settles a cart, returning the
// receipt. Nothing is persisted unless every step succeeds.
func (p *Processor) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (_ *domain.Receipt, err error) {
	logger := logging.FromContextOr(ctx, p.log).With(zap.String("use_case", useCaseSubmit))

	ctx, span := p.tracer.Start(ctx, spanPrefix+"SubmitOrder", trace.WithAttributes(
		attribute.String("use_case", useCaseSubmit),
		attribute.Int64("order.cashier_id", req.CashierID),
		attribute.Int("order.items", len(req.Items)),
	))
	start := time.Now()
	attempts := 0
	var result settlement

	defer func() {
		lat := time.Since(start)
		outcome := Outcome(err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetAttributes(attribute.Int64("order.id", result.receipt.InvoiceNumber))
			span.SetStatus(codes.Ok, outcome)
		}
		span.End()

		if p.recorder != nil {
			p.recorder.ObserveOrder(outcome, lat)
			if err == nil {
				p.recorder.AddUnitsSold(result.units)
			}
		}

		fields := []zap.Field{
			zap.String("outcome", outcome),
			zap.Int("attempts", attempts),
			zap.Float64("latency_seconds", lat.Seconds()),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
			if outcome == metrics.OutcomeError {
				logger.Error("use_case_done", fields...)
				return
			}
			logger.Info("use_case_done", fields...)
			return
		}
		fields = append(fields, zap.Int64("order_id", result.receipt.InvoiceNumber))
		logger.Info("use_case_done", fields...)
	}()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	for {
		attempts++
		result, err = p.settle(ctx, req)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrStockConflict) || attempts > p.retries || ctx.Err() != nil {
			return nil, err
		}
		logger.Warn("stock_conflict_retry", zap.Int("attempt", attempts), zap.Error(err))
	}

	p.publish(ctx, logger, result.events)
	return result.receipt, nil
}

// line is a cart item resolved to a medicine and a batch.
type line struct {
	medicine domain.Medicine
	batch    domain.InventoryBatch
	qty      int64
}

func (p *Processor) settle(ctx context.Context, req SubmitOrderRequest) (settlement, error) {
	var out settlement
	err := p.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		account, err := tx.ResolveAccount(ctx, req.CashierID)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && !account.Active) {
			return fmt.Errorf("%w: cashier %d", domain.ErrInvalidAccount, req.CashierID)
		}
		if err != nil {
			return fmt.Errorf("resolve cashier: %w", err)
		}

		lines, err := p.selectLines(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		orderLines := make([]domain.OrderLine, len(lines))
		for i, l := range lines {
			orderLines[i] = domain.OrderLine{
				BatchID:    l.batch.ID,
				MedicineID: l.medicine.ID,
				Quantity:   l.qty,
				UnitPrice:  l.medicine.UnitPrice,
			}
		}
		totals := ComputeTotals(orderLines, req.Discount)

		if req.Payment != nil {
			if err := validatePayment(req.Payment, totals.Total); err != nil {
				return err
			}
		}

		order := &domain.Order{
			CashierID:      account.ID,
			CreatedAt:      p.now().UTC().Truncate(time.Microsecond),
			DiscountAmount: totals.Discount,
			TotalAmount:    totals.Total,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		receipt := &domain.Receipt{
			InvoiceNumber: order.ID,
			Cashier:       account.DisplayName(),
			CreatedAt:     order.CreatedAt,
			Lines:         make([]domain.ReceiptLine, 0, len(lines)),
			Subtotal:      totals.Subtotal,
			Discount:      totals.Discount,
			Total:         totals.Total,
		}
		var events []domain.Event
		var units int64

		for i, l := range lines {
			ol := orderLines[i]
			ol.OrderID = order.ID
			if err := tx.InsertOrderLine(ctx, &ol); err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
			remaining, err := tx.DecrementBatch(ctx, l.batch.ID, l.qty)
			if errors.Is(err, domain.ErrStockConflict) {
				return &domain.StockError{
					Kind:         domain.ErrStockConflict,
					MedicineID:   l.medicine.ID,
					MedicineName: l.medicine.Name,
					BatchID:      l.batch.ID,
				}
			}
			if err != nil {
				return fmt.Errorf("decrement batch %d: %w", l.batch.ID, err)
			}
			units += l.qty

			receipt.Lines = append(receipt.Lines, domain.ReceiptLine{
				MedicineID:   l.medicine.ID,
				MedicineName: l.medicine.Name,
				BatchID:      l.batch.ID,
				BatchNumber:  l.batch.BatchNumber,
				Quantity:     l.qty,
				UnitPrice:    l.medicine.UnitPrice,
				LineTotal:    ol.LineTotal().Round(2),
			})
			events = append(events, domain.StockMovement{
				OrderID:    order.ID,
				BatchID:    l.batch.ID,
				MedicineID: l.medicine.ID,
				Quantity:   l.qty,
				Remaining:  remaining,
				OccurredAt: order.CreatedAt,
			})
			if remaining <= l.batch.ReorderLevel {
				events = append(events, domain.LowStock{
					BatchID:      l.batch.ID,
					MedicineID:   l.medicine.ID,
					MedicineName: l.medicine.Name,
					BatchNumber:  l.batch.BatchNumber,
					Remaining:    remaining,
					ReorderLevel: l.batch.ReorderLevel,
					OccurredAt:   order.CreatedAt,
				})
			}
		}

		if req.Payment != nil {
			rp, err := p.recordPayment(ctx, tx, order, req.Payment)
			if err != nil {
				return err
			}
			receipt.Payment = rp
		}

		out = settlement{receipt: receipt, events: events, units: units}
		return nil
	})
	if err != nil {
		return settlement{}, err
	}
	return out, nil
}

func (p *Processor) selectLines(ctx context.Context, tx Tx, items []CartItem) ([]line, error) {
	claimed := make(map[int64]int64)
	lines := make([]line, 0, len(items))
	for _, item := range items {
		med, err := tx.GetMedicine(ctx, item.MedicineID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.StockError{Kind: domain.ErrOutOfStock, MedicineID: item.MedicineID}
		}
		if err != nil {
			return nil, fmt.Errorf("get medicine %d: %w", item.MedicineID, err)
		}
		batches, err := tx.ListEligibleBatches(ctx, med.ID)
		if err != nil {
			return nil, fmt.Errorf("list batches of medicine %d: %w", med.ID, err)
		}
		batch, err := SelectBatch(med, batches, claimed, item.Quantity)
		if err != nil {
			return nil, err
		}
		claimed[batch.ID] += item.Quantity
		lines = append(lines, line{medicine: med, batch: batch, qty: item.Quantity})
	}
	return lines, nil
}

func (p *Processor) recordPayment(ctx context.Context, tx Tx, order *domain.Order, in *PaymentInput) (*domain.ReceiptPayment, error) {
	method, err := tx.ResolveOrCreatePaymentMethod(ctx, in.Method)
	if err != nil {
		return nil, fmt.Errorf("resolve payment method: %w", err)
	}
	payment := &domain.Payment{
		OrderID:         order.ID,
		PaymentMethodID: method.ID,
		AmountPaid:      in.AmountPaid.Round(2),
		ChangeAmount:    in.AmountPaid.Round(2).Sub(order.TotalAmount),
		CreatedAt:       order.CreatedAt,
	}
	if err := tx.InsertPayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return &domain.ReceiptPayment{
		Method:     method.Name,
		AmountPaid: payment.AmountPaid,
		Change:     payment.ChangeAmount,
	}, nil
}

// publish hands committed events to the publisher. The sale is already
// durable, so failures are only logged.
func (p *Processor) publish(ctx context.Context, logger *zap.Logger, events []domain.Event) {
	if p.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, e := range events {
		if err := p.publisher.Publish(ctx, e); err != nil {
			logger.Warn("event_publish_failed", zap.String("event", e.EventName()), zap.Error(err))
		}
	}
}

// GetOrder returns a completed order with its lines and payment.
func (p *Processor) GetOrder(ctx context.Context, id int64) (_ *domain.OrderDetail, err error) {
	ctx, span := p.tracer.Start(ctx, spanPrefix+"GetOrder", trace.WithAttributes(
		attribute.String("use_case", useCaseGet),
		attribute.Int64("order.id", id),
	))
	defer func() {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if id <= 0 {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}
	return p.store.GetOrderDetail(ctx, id)
}

// ListOrders returns one page of orders, newest first, and the total number
// of orders matching filter.
func (p *Processor) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderSummary, int64, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, 0, domain.Invalid("to", "must not be before from")
	}
	return p.store.ListOrders(ctx, filter.Normalize())
}

func (p *Processor) PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return p.store.ListPaymentMethods(ctx)
}

// Outcome classifies an error returned by SubmitOrder for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, domain.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, domain.ErrInvalidAccount):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, domain.ErrStockConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, domain.ErrOutOfStock), errors.Is(err, domain.ErrInsufficientStock):
		return metrics.OutcomeOutOfStock
	default:
		return metrics.OutcomeError
	}
}
