package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmpos/m/internal/database"
)

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := database.Connect(ctx, "file:"+filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Run(ctx, db, dialect))
	require.NoError(t, Run(ctx, db, dialect))

	var names []string
	require.NoError(t, db.Select(&names, "SELECT name FROM payment_types"))
	assert.Equal(t, []string{"Cash"}, names)

	for _, table := range []string{"accounts", "medicines", "inventory", "orders", "order_details", "payments"} {
		var n int
		require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table))
		assert.Equal(t, 1, n, table)
	}
}

func TestInventoryRejectsNegativeQuantity(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := database.Connect(ctx, "file:"+filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Run(ctx, db, dialect))

	_, err = db.Exec(`INSERT INTO medicines (name, unit_price) VALUES ('Paracetamol', '5.00')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO inventory (medicine_id, batch_number, quantity, expiry_date) VALUES (1, 'B-1', 2, '2030-01-01')`)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE inventory SET quantity = quantity - 3 WHERE id = 1`)
	assert.Error(t, err)
}
