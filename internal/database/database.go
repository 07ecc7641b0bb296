package database

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialect names the database/sql driver behind a DSN.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "pgx"
)

// DialectOf picks the driver for dsn. Postgres URLs select pgx, anything else
// is treated as a SQLite file or URI.
func DialectOf(dsn string) Dialect {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return Postgres
	}
	return SQLite
}

// Connect opens the database named by dsn and verifies it is reachable.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, Dialect, error) {
	dialect := DialectOf(dsn)
	if dialect == SQLite {
		dsn = SQLiteDSN(dsn)
	}
	db, err := sqlx.ConnectContext(ctx, string(dialect), dsn)
	if err != nil {
		return nil, dialect, fmt.Errorf("connect %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// SQLite has a single writer; one connection keeps transactions serial.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
	}
	return db, dialect, nil
}

// SQLiteDSN adds the connection parameters the schema relies on: enforced
// foreign keys and times stored in a format SQLite date functions understand.
func SQLiteDSN(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "foreign_keys") {
		params = append(params, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "_time_format") {
		params = append(params, "_time_format=sqlite")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
