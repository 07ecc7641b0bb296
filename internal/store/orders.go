package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"pharmpos/m/domain"
)

type orderHeader struct {
	domain.Order
	Cashier string `db:"cashier"`
}

// GetOrderDetail loads an order with its lines and payment.
func (s *Store) GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error) {
	q := s.q()

	var h orderHeader
	err := q.get(ctx, &h, `
		SELECT o.id, o.cashier_id, o.created_at, o.discount_amount, o.total_amount, `+cashierName+` AS cashier
		FROM orders o
		LEFT JOIN accounts a ON a.id = o.cashier_id
		WHERE o.id = ?`, id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	detail := &domain.OrderDetail{Order: h.Order, Cashier: h.Cashier}

	detail.Lines = []domain.OrderDetailLine{}
	err = q.selectAll(ctx, &detail.Lines, `
		SELECT d.id, d.order_id, d.batch_id, d.medicine_id, d.quantity, d.unit_price,
		       i.batch_number, m.name AS medicine_name, m.dosage, m.form
		FROM order_details d
		JOIN inventory i ON i.id = d.batch_id
		JOIN medicines m ON m.id = d.medicine_id
		WHERE d.order_id = ?
		ORDER BY d.id`, id)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}

	var p domain.PaymentDetail
	err = q.get(ctx, &p, `
		SELECT p.id, p.order_id, p.payment_type_id, p.amount_paid, p.change_amount, p.created_at, pt.name AS method
		FROM payments p
		JOIN payment_types pt ON pt.id = p.payment_type_id
		WHERE p.order_id = ?`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load payment: %w", err)
	default:
		detail.Payment = &p
	}
	return detail, nil
}

// ListOrders returns one page of orders matching f, newest first, along with
// the total number of matches.
func (s *Store) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.OrderSummary, int64, error) {
	q := s.q()
	f = f.Normalize()

	where, args := period("o.created_at", f.From, f.To)
	if c := strings.TrimSpace(f.Cashier); c != "" {
		where += ` AND (LOWER(` + cashierName + `) LIKE ? OR LOWER(a.username) LIKE ?)`
		pattern := "%" + strings.ToLower(c) + "%"
		args = append(args, pattern, pattern)
	}
	from := `
		FROM orders o
		LEFT JOIN accounts a ON a.id = o.cashier_id
		LEFT JOIN payments p ON p.order_id = o.id
		LEFT JOIN payment_types pt ON pt.id = p.payment_type_id
		WHERE 1=1` + where

	var total int64
	if err := q.get(ctx, &total, `SELECT COUNT(*)`+from, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	orders := []domain.OrderSummary{}
	err := q.selectAll(ctx, &orders, `
		SELECT o.id, o.created_at, o.discount_amount, o.total_amount, `+cashierName+` AS cashier,
		       pt.name AS method, p.amount_paid`+from+`
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT ? OFFSET ?`, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	if err := s.countItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// countItems fills ItemCount for a page of orders with one query.
func (s *Store) countItems(ctx context.Context, orders []domain.OrderSummary) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	query, args, err := sqlx.In(`
		SELECT order_id, CAST(SUM(quantity) AS BIGINT) AS items
		FROM order_details
		WHERE order_id IN (?)
		GROUP BY order_id`, ids)
	if err != nil {
		return fmt.Errorf("prepare item counts: %w", err)
	}

	var rows []struct {
		OrderID int64 `db:"order_id"`
		Items   int64 `db:"items"`
	}
	if err := s.q().selectAll(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("count order items: %w", err)
	}
	counts := make(map[int64]int64, len(rows))
	for _, r := range rows {
		counts[r.OrderID] = r.Items
	}
	for i := range orders {
		orders[i].ItemCount = counts[orders[i].ID]
	}
	return nil
}

// ListPaymentMethods returns every payment method in id order.
func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	methods := []domain.PaymentMethod{}
	if err := s.q().selectAll(ctx, &methods, `SELECT id, name FROM payment_types ORDER BY id`); err != nil {
		return nil, err
	}
	return methods, nil
}
