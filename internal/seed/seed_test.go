package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pharmpos/m/domain"
	"pharmpos/m/internal/storetest"
)

const catalog = `name,unit_price,dosage,form,manufacturer,batch_number,quantity,expiry_date,reorder_level
Paracetamol,2.00,500mg,Tablet,Unilab,PCM-001,100,2027-06-30,10
Paracetamol,2.00,500mg,Tablet,Unilab,PCM-002,40,2027-12-31,10
Amoxicillin,7.5,250mg,Capsule,Pfizer,AMX-001,60,2026-12-31,
Broken,abc,1mg,Tablet,Acme,BRK-001,1,2027-01-01,0
NoBatch,1.00,1mg,Tablet,Acme,,1,2027-01-01,0
`

func TestLoadCatalog(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	res, err := LoadCatalog(ctx, s, strings.NewReader(catalog), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Result{Medicines: 2, Batches: 3, Skipped: 2}, res)

	again, err := LoadCatalog(ctx, s, strings.NewReader(catalog), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 2}, again)

	assert.Equal(t, int64(2), storetest.Count(t, s, "medicines"))
	assert.Equal(t, int64(3), storetest.Count(t, s, "inventory"))

	alerts, err := s.StockAlerts(ctx, storetest.Date(2026, 12, 15), 30)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "AMX-001", alerts[0].BatchNumber)
	assert.Equal(t, "Amoxicillin", alerts[0].MedicineName)
}

func TestLoadCatalogFileMissing(t *testing.T) {
	s := storetest.New(t)
	res, err := LoadCatalogFile(context.Background(), s, filepath.Join(t.TempDir(), "none.csv"), zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, res)
}

func TestLoadCatalogFile(t *testing.T) {
	s := storetest.New(t)
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o600))

	res, err := LoadCatalogFile(context.Background(), s, path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Batches)
}

func TestEnsureAdmin(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	created, err := EnsureAdmin(ctx, s, "admin", "", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, created)

	created, err = EnsureAdmin(ctx, s, "admin", "s3cret", zap.NewNop())
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := s.AccountByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("s3cret")))

	created, err = EnsureAdmin(ctx, s, "other", "pw", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, created)
}
