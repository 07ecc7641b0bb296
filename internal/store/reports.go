package store

import (
	"context"
	"fmt"
	"time"

	"pharmpos/m/domain"
)

// DashboardMetrics aggregates sales between from and to. Zero bounds are open.
func (s *Store) DashboardMetrics(ctx context.Context, from, to time.Time) (domain.DashboardMetrics, error) {
	q := s.q()
	where, args := period("o.created_at", from, to)

	var m domain.DashboardMetrics
	err := q.get(ctx, &m, `
		SELECT COALESCE(SUM(o.total_amount), 0) AS total_sales, COUNT(*) AS transaction_count
		FROM orders o
		WHERE 1=1`+where, args...)
	if err != nil {
		return domain.DashboardMetrics{}, fmt.Errorf("sum sales: %w", err)
	}
	m.TotalSales = m.TotalSales.Round(2)

	err = q.get(ctx, &m.ItemsSold, `
		SELECT CAST(COALESCE(SUM(d.quantity), 0) AS BIGINT)
		FROM order_details d
		JOIN orders o ON o.id = d.order_id
		WHERE 1=1`+where, args...)
	if err != nil {
		return domain.DashboardMetrics{}, fmt.Errorf("sum items: %w", err)
	}

	err = q.get(ctx, &m.MedicinesInStock, `SELECT COUNT(DISTINCT medicine_id) FROM inventory WHERE quantity > 0`)
	if err != nil {
		return domain.DashboardMetrics{}, fmt.Errorf("count stocked medicines: %w", err)
	}
	return m, nil
}

// TopProducts ranks medicines by units sold in the period, listing every
// medicine that either sold or still has stock. It returns one page and the
// total number of ranked medicines.
func (s *Store) TopProducts(ctx context.Context, f domain.OrderFilter) ([]domain.ProductSales, int64, error) {
	q := s.q()
	f = f.Normalize()
	where, args := period("o.created_at", f.From, f.To)

	base := `
		FROM medicines m
		LEFT JOIN (
			SELECT d.medicine_id, SUM(d.quantity) AS sold, SUM(d.quantity * d.unit_price) AS amount
			FROM order_details d
			JOIN orders o ON o.id = d.order_id
			WHERE 1=1` + where + `
			GROUP BY d.medicine_id
		) sales ON sales.medicine_id = m.id
		LEFT JOIN (
			SELECT medicine_id, SUM(quantity) AS available
			FROM inventory
			WHERE quantity > 0
			GROUP BY medicine_id
		) stock ON stock.medicine_id = m.id
		WHERE COALESCE(stock.available, 0) > 0 OR COALESCE(sales.sold, 0) > 0`

	var total int64
	if err := q.get(ctx, &total, `SELECT COUNT(*)`+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows := []domain.ProductSales{}
	err := q.selectAll(ctx, &rows, `
		SELECT m.id AS medicine_id, m.name,
		       CAST(COALESCE(sales.sold, 0) AS BIGINT) AS units_sold,
		       COALESCE(sales.amount, 0) AS sales_amount,
		       CAST(COALESCE(stock.available, 0) AS BIGINT) AS available_stock`+base+`
		ORDER BY units_sold DESC, sales_amount DESC, m.id ASC
		LIMIT ? OFFSET ?`, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("rank products: %w", err)
	}
	for i := range rows {
		rows[i].SalesAmount = rows[i].SalesAmount.Round(2)
	}
	return rows, total, nil
}

// StockAlerts lists batches with stock on hand that are at or below their
// reorder level or expire before now plus days.
func (s *Store) StockAlerts(ctx context.Context, now time.Time, days int) ([]domain.StockAlert, error) {
	horizon := now.UTC().AddDate(0, 0, days)
	alerts := []domain.StockAlert{}
	err := s.q().selectAll(ctx, &alerts, `
		SELECT i.id, i.medicine_id, i.batch_number, i.quantity, i.expiry_date, i.reorder_level, i.received_at,
		       m.name AS medicine_name,
		       CASE WHEN i.quantity <= i.reorder_level THEN 1 ELSE 0 END AS low_stock,
		       CASE WHEN i.expiry_date <= ? THEN 1 ELSE 0 END AS expiring
		FROM inventory i
		JOIN medicines m ON m.id = i.medicine_id
		WHERE i.quantity > 0 AND (i.quantity <= i.reorder_level OR i.expiry_date <= ?)
		ORDER BY i.expiry_date ASC, i.quantity ASC, i.id ASC`, horizon, horizon)
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// GetBatch returns one inventory batch.
func (s *Store) GetBatch(ctx context.Context, id int64) (domain.InventoryBatch, error) {
	var b domain.InventoryBatch
	err := s.q().get(ctx, &b, `
		SELECT id, medicine_id, batch_number, quantity, expiry_date, reorder_level, received_at
		FROM inventory WHERE id = ?`, id)
	if err != nil {
		return domain.InventoryBatch{}, notFound(err, "batch", id)
	}
	return b, nil
}
