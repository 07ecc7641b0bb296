package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmpos/m/domain"
)

// Tx is one open transaction. It implements sales.Tx.
type Tx struct {
	q queryer
}

const accountColumns = `id, username, first_name, last_name, password, role, is_active, created_at`

func (t *Tx) ResolveAccount(ctx context.Context, id int64) (domain.Account, error) {
	var a domain.Account
	err := t.q.get(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	if err != nil {
		return domain.Account{}, notFound(err, "account", id)
	}
	return a, nil
}

func (t *Tx) GetMedicine(ctx context.Context, id int64) (domain.Medicine, error) {
	var m domain.Medicine
	err := t.q.get(ctx, &m, `SELECT id, name, unit_price, dosage, form, manufacturer FROM medicines WHERE id = ?`, id)
	if err != nil {
		return domain.Medicine{}, notFound(err, "medicine", id)
	}
	return m, nil
}

func (t *Tx) ListEligibleBatches(ctx context.Context, medicineID int64) ([]domain.InventoryBatch, error) {
	var batches []domain.InventoryBatch
	err := t.q.selectAll(ctx, &batches, `
		SELECT id, medicine_id, batch_number, quantity, expiry_date, reorder_level, received_at
		FROM inventory
		WHERE medicine_id = ? AND quantity > 0
		ORDER BY quantity ASC, expiry_date ASC, id ASC`, medicineID)
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (t *Tx) DecrementBatch(ctx context.Context, batchID, qty int64) (int64, error) {
	var remaining int64
	err := t.q.get(ctx, &remaining, `
		UPDATE inventory SET quantity = quantity - ?
		WHERE id = ? AND quantity >= ?
		RETURNING quantity`, qty, batchID, qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: batch %d", domain.ErrStockConflict, batchID)
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func (t *Tx) ResolveOrCreatePaymentMethod(ctx context.Context, name string) (domain.PaymentMethod, error) {
	name = strings.TrimSpace(name)
	if _, err := t.q.exec(ctx, `INSERT INTO payment_types (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return domain.PaymentMethod{}, err
	}
	var pm domain.PaymentMethod
	if err := t.q.get(ctx, &pm, `SELECT id, name FROM payment_types WHERE name = ?`, name); err != nil {
		return domain.PaymentMethod{}, err
	}
	return pm, nil
}

func (t *Tx) InsertOrder(ctx context.Context, o *domain.Order) error {
	id, err := t.q.insert(ctx, `
		INSERT INTO orders (cashier_id, created_at, discount_amount, total_amount)
		VALUES (?, ?, ?, ?)`, o.CashierID, o.CreatedAt, o.DiscountAmount, o.TotalAmount)
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

func (t *Tx) InsertOrderLine(ctx context.Context, l *domain.OrderLine) error {
	id, err := t.q.insert(ctx, `
		INSERT INTO order_details (order_id, batch_id, medicine_id, quantity, unit_price)
		VALUES (?, ?, ?, ?, ?)`, l.OrderID, l.BatchID, l.MedicineID, l.Quantity, l.UnitPrice)
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func (t *Tx) InsertPayment(ctx context.Context, p *domain.Payment) error {
	id, err := t.q.insert(ctx, `
		INSERT INTO payments (order_id, payment_type_id, amount_paid, change_amount, created_at)
		VALUES (?, ?, ?, ?, ?)`, p.OrderID, p.PaymentMethodID, p.AmountPaid, p.ChangeAmount, p.CreatedAt)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// CreateAccount inserts a with an already hashed password.
func (t *Tx) CreateAccount(ctx context.Context, a *domain.Account) error {
	if a.Role == "" {
		a.Role = domain.RoleStaff
	}
	id, err := t.q.insert(ctx, `
		INSERT INTO accounts (username, first_name, last_name, password, role, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`, a.Username, a.FirstName, a.LastName, a.Password, a.Role, a.Active)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// UpsertMedicine inserts m, or loads the existing medicine with the same
// name into m.
func (t *Tx) UpsertMedicine(ctx context.Context, m *domain.Medicine) (created bool, err error) {
	res, err := t.q.exec(ctx, `
		INSERT INTO medicines (name, unit_price, dosage, form, manufacturer)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`, m.Name, m.UnitPrice, m.Dosage, m.Form, m.Manufacturer)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := t.q.get(ctx, m, `SELECT id, name, unit_price, dosage, form, manufacturer FROM medicines WHERE name = ?`, m.Name); err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddBatch receives a new inventory batch. Batch numbers are unique; a
// repeated number leaves the existing batch untouched and returns
// ErrDuplicate without aborting the transaction.
func (t *Tx) AddBatch(ctx context.Context, b *domain.InventoryBatch) error {
	if b.Quantity < 0 {
		return domain.Invalid("quantity", "must not be negative")
	}
	if b.ReceivedAt.IsZero() {
		b.ReceivedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	id, err := t.q.insert(ctx, `
		INSERT INTO inventory (medicine_id, batch_number, quantity, expiry_date, reorder_level, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_number) DO NOTHING`, b.MedicineID, b.BatchNumber, b.Quantity, b.ExpiryDate.UTC(), b.ReorderLevel, b.ReceivedAt.UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: batch %s", ErrDuplicate, b.BatchNumber)
	}
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}
