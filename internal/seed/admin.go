package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pharmpos/m/domain"
	"pharmpos/m/internal/store"
)

// EnsureAdmin creates the bootstrap admin account when no account exists.
// It does nothing once any account is on file.
func EnsureAdmin(ctx context.Context, s *store.Store, username, password string, logger *zap.Logger) (bool, error) {
	n, err := s.CountAccounts(ctx)
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if username == "" || password == "" {
		logger.Warn("admin_bootstrap_skipped", zap.String("reason", "ADMIN_USERNAME or ADMIN_PASSWORD not set"))
		return false, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := domain.Account{
		Username: username,
		Password: string(hashed),
		Role:     domain.RoleAdmin,
		Active:   true,
	}
	if err := s.CreateAccount(ctx, &admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	logger.Info("admin_bootstrapped", zap.String("username", username), zap.Int64("account_id", admin.ID))
	return true, nil
}
