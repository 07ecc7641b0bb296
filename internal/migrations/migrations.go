package migrations

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pharmpos/m/internal/database"
)

// Run creates the database schema required for the POS backend. Every
// statement is idempotent so Run is safe on every start.
func Run(ctx context.Context, db *sqlx.DB, dialect database.Dialect) error {
	schema := sqliteSchema
	if dialect == database.Postgres {
		schema = postgresSchema
	}
	schema = append(schema, commonStatements...)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            first_name TEXT NOT NULL DEFAULT '',
            last_name TEXT NOT NULL DEFAULT '',
            password TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('Admin', 'Staff')),
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS medicines (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            unit_price NUMERIC NOT NULL CHECK (unit_price >= 0),
            dosage TEXT NOT NULL DEFAULT '',
            form TEXT NOT NULL DEFAULT '',
            manufacturer TEXT NOT NULL DEFAULT ''
        );`,
	`CREATE TABLE IF NOT EXISTS inventory (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            medicine_id INTEGER NOT NULL,
            batch_number TEXT NOT NULL UNIQUE,
            quantity INTEGER NOT NULL CHECK (quantity >= 0),
            expiry_date DATE NOT NULL,
            reorder_level INTEGER NOT NULL DEFAULT 0,
            received_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(medicine_id) REFERENCES medicines(id)
        );`,
	`CREATE TABLE IF NOT EXISTS orders (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            cashier_id INTEGER NOT NULL,
            created_at DATETIME NOT NULL,
            discount_amount NUMERIC NOT NULL DEFAULT 0,
            total_amount NUMERIC NOT NULL,
            FOREIGN KEY(cashier_id) REFERENCES accounts(id)
        );`,
	`CREATE TABLE IF NOT EXISTS order_details (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            order_id INTEGER NOT NULL,
            batch_id INTEGER NOT NULL,
            medicine_id INTEGER NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price NUMERIC NOT NULL,
            FOREIGN KEY(order_id) REFERENCES orders(id) ON DELETE CASCADE,
            FOREIGN KEY(batch_id) REFERENCES inventory(id),
            FOREIGN KEY(medicine_id) REFERENCES medicines(id)
        );`,
	`CREATE TABLE IF NOT EXISTS payment_types (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE
        );`,
	`CREATE TABLE IF NOT EXISTS payments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            order_id INTEGER NOT NULL UNIQUE,
            payment_type_id INTEGER NOT NULL,
            amount_paid NUMERIC NOT NULL,
            change_amount NUMERIC NOT NULL DEFAULT 0 CHECK (change_amount >= 0),
            created_at DATETIME NOT NULL,
            FOREIGN KEY(order_id) REFERENCES orders(id) ON DELETE CASCADE,
            FOREIGN KEY(payment_type_id) REFERENCES payment_types(id)
        );`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('Admin', 'Staff')),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	`CREATE TABLE IF NOT EXISTS medicines (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			unit_price NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
			dosage TEXT NOT NULL DEFAULT '',
			form TEXT NOT NULL DEFAULT '',
			manufacturer TEXT NOT NULL DEFAULT ''
		);`,
	`CREATE TABLE IF NOT EXISTS inventory (
			id BIGSERIAL PRIMARY KEY,
			medicine_id BIGINT NOT NULL REFERENCES medicines(id),
			batch_number TEXT NOT NULL UNIQUE,
			quantity BIGINT NOT NULL CHECK (quantity >= 0),
			expiry_date DATE NOT NULL,
			reorder_level BIGINT NOT NULL DEFAULT 0,
			received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			cashier_id BIGINT NOT NULL REFERENCES accounts(id),
			created_at TIMESTAMPTZ NOT NULL,
			discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			total_amount NUMERIC(12,2) NOT NULL
		);`,
	`CREATE TABLE IF NOT EXISTS order_details (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			batch_id BIGINT NOT NULL REFERENCES inventory(id),
			medicine_id BIGINT NOT NULL REFERENCES medicines(id),
			quantity BIGINT NOT NULL CHECK (quantity > 0),
			unit_price NUMERIC(12,2) NOT NULL
		);`,
	`CREATE TABLE IF NOT EXISTS payment_types (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);`,
	`CREATE TABLE IF NOT EXISTS payments (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
			payment_type_id BIGINT NOT NULL REFERENCES payment_types(id),
			amount_paid NUMERIC(12,2) NOT NULL,
			change_amount NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (change_amount >= 0),
			created_at TIMESTAMPTZ NOT NULL
		);`,
}

var commonStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_inventory_medicine ON inventory(medicine_id);`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_order_details_order ON order_details(order_id);`,
	`INSERT INTO payment_types (name) VALUES ('Cash') ON CONFLICT(name) DO NOTHING;`,
}
