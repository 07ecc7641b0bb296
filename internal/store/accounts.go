package store

import (
	"context"

	"pharmpos/m/domain"
)

// AccountByUsername looks up an account for login.
func (s *Store) AccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	var a domain.Account
	err := s.q().get(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	if err != nil {
		return domain.Account{}, notFound(err, "account", username)
	}
	return a, nil
}

// CountAccounts returns the number of accounts on file.
func (s *Store) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	if err := s.q().get(ctx, &n, `SELECT COUNT(*) FROM accounts`); err != nil {
		return 0, err
	}
	return n, nil
}

// CreateAccount inserts a in its own transaction.
func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	return s.Transact(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.CreateAccount(ctx, a)
	})
}

// ListCashiers returns the distinct display names of accounts that have rung
// up at least one order.
func (s *Store) ListCashiers(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.q().selectAll(ctx, &names, `
		SELECT DISTINCT `+cashierName+` AS cashier
		FROM orders o
		LEFT JOIN accounts a ON a.id = o.cashier_id
		ORDER BY cashier ASC`)
	if err != nil {
		return nil, err
	}
	return names, nil
}
