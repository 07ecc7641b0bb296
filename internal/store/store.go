package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pharmpos/m/domain"
	"pharmpos/m/internal/database"
	"pharmpos/m/internal/sales"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("store: duplicate record")

// Store is the relational persistence for accounts, catalog, inventory and
// orders. Queries are written with ? placeholders and rebound per dialect.
type Store struct {
	db      *sqlx.DB
	dialect database.Dialect
}

func New(db *sqlx.DB, dialect database.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Transact runs fn in a single transaction. It commits when fn returns nil
// and rolls back on error, panic or context cancellation.
func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(ctx, &Tx{q: queryer{ext: sqlTx, bind: s.bindType()}}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// WithinTx adapts Transact to the sales processor's session interface.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx sales.Tx) error) error {
	return s.Transact(ctx, func(ctx context.Context, tx *Tx) error {
		return fn(ctx, tx)
	})
}

func (s *Store) bindType() int {
	return sqlx.BindType(string(s.dialect))
}

func (s *Store) q() queryer {
	return queryer{ext: s.db, bind: s.bindType()}
}

// queryer runs ?-placeholder queries against a pool or a transaction.
type queryer struct {
	ext  sqlx.ExtContext
	bind int
}

func (q queryer) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q.ext, dest, sqlx.Rebind(q.bind, query), args...)
}

func (q queryer) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.ext, dest, sqlx.Rebind(q.bind, query), args...)
}

func (q queryer) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.ext.ExecContext(ctx, sqlx.Rebind(q.bind, query), args...)
}

// insert runs an INSERT ... RETURNING id statement.
func (q queryer) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := q.ext.QueryRowxContext(ctx, sqlx.Rebind(q.bind, query+" RETURNING id"), args...).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return 0, err
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}

// notFound maps sql.ErrNoRows to domain.ErrNotFound.
func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %v", domain.ErrNotFound, what, id)
	}
	return err
}

// period appends half-open range conditions on col for the non-zero bounds.
func period(col string, from, to time.Time) (string, []any) {
	var conds []string
	var args []any
	if !from.IsZero() {
		conds = append(conds, col+" >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, col+" < ?")
		args = append(args, to.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(conds, " AND "), args
}

// cashierName renders an account's display name in SQL with the same
// fallbacks as domain.Account.DisplayName, defaulting to 'Staff'.
const cashierName = `COALESCE(NULLIF(TRIM(COALESCE(a.first_name, '') || ' ' || COALESCE(a.last_name, '')), ''), a.username, 'Staff')`
