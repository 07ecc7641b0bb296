// Package storetest builds migrated SQLite stores and fixtures for tests.
package storetest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pharmpos/m/domain"
	"pharmpos/m/internal/database"
	"pharmpos/m/internal/migrations"
	"pharmpos/m/internal/store"
)

// New returns a store backed by a fresh SQLite file in a temp dir.
func New(t testing.TB) *store.Store {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "pharmpos.db")
	db, dialect, err := database.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Run(ctx, db, dialect))
	return store.New(db, dialect)
}

// Account creates an active account. The password is stored as given.
func Account(t testing.TB, s *store.Store, username, first, last, role string) domain.Account {
	t.Helper()
	a := domain.Account{
		Username:  username,
		FirstName: first,
		LastName:  last,
		Password:  "x",
		Role:      role,
		Active:    true,
	}
	require.NoError(t, s.CreateAccount(context.Background(), &a))
	return a
}

// Medicine creates a medicine priced at price.
func Medicine(t testing.TB, s *store.Store, name, price string) domain.Medicine {
	t.Helper()
	m := domain.Medicine{Name: name, UnitPrice: decimal.RequireFromString(price), Dosage: "500mg", Form: "Tablet"}
	err := s.Transact(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		_, err := tx.UpsertMedicine(ctx, &m)
		return err
	})
	require.NoError(t, err)
	return m
}

// Batch receives qty units of medicineID expiring on expiry.
func Batch(t testing.TB, s *store.Store, medicineID int64, label string, qty int64, expiry time.Time, reorder int64) domain.InventoryBatch {
	t.Helper()
	b := domain.InventoryBatch{
		MedicineID:   medicineID,
		BatchNumber:  label,
		Quantity:     qty,
		ExpiryDate:   expiry,
		ReorderLevel: reorder,
	}
	err := s.Transact(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		return tx.AddBatch(ctx, &b)
	})
	require.NoError(t, err)
	return b
}

// Quantity returns the current quantity of a batch.
func Quantity(t testing.TB, s *store.Store, batchID int64) int64 {
	t.Helper()
	b, err := s.GetBatch(context.Background(), batchID)
	require.NoError(t, err)
	return b.Quantity
}

// Count returns the number of rows in table.
func Count(t testing.TB, s *store.Store, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Get(&n, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)))
	return n
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
