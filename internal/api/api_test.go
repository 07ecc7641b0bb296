package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"pharmpos/m/domain"
	"pharmpos/m/internal/api"
	"pharmpos/m/internal/metrics"
	"pharmpos/m/internal/sales"
	"pharmpos/m/internal/store"
	"pharmpos/m/internal/storetest"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2026, 10, 18, 10, 30, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	store  *store.Store
	server *httptest.Server
	logs   *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith serves the API over a fresh store. A non-nil orders
// replaces the real sales processor.
func newTestServerWith(t *testing.T, orders api.OrderService) *testServer {
	t.Helper()
	s := storetest.New(t)
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	m := metrics.New("pharmpos", prometheus.NewRegistry())

	if orders == nil {
		orders = sales.NewProcessor(s, sales.WithRecorder(m), sales.WithLogger(logger))
	}
	h := api.New(orders, s, s, testSecret, api.Options{
		Logger:  logger,
		Metrics: m,
		Ready:   s.Ping,
		Now:     func() time.Time { return fixedNow },
	})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &testServer{t: t, store: s, server: srv, logs: logs}
}

func (ts *testServer) account(username, password, role string, active bool) domain.Account {
	ts.t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(ts.t, err)
	a := domain.Account{
		Username:  username,
		FirstName: "Test",
		LastName:  username,
		Password:  string(hashed),
		Role:      role,
		Active:    active,
	}
	require.NoError(ts.t, ts.store.CreateAccount(context.Background(), &a))
	return a
}

func (ts *testServer) login(username, password string) string {
	ts.t.Helper()
	resp, body := ts.do(http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(ts.t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Token   string         `json:"token"`
		Account domain.Account `json:"account"`
	}
	require.NoError(ts.t, json.Unmarshal(body, &out))
	require.NotEmpty(ts.t, out.Token)
	return out.Token
}

func (ts *testServer) do(method, path, token string, payload any) (*http.Response, []byte) {
	ts.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(ts.t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.server.URL+path, body)
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(ts.t, err)
	return resp, raw
}

func decodeBody[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodGet, ts.server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))

	entries := ts.logs.FilterMessage("http_request").FilterField(zap.String("request_id", "req-123")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/health", entries[0].ContextMap()["route"])
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.account("maria", "s3cret", domain.RoleStaff, true)
	ts.account("ghost", "s3cret", domain.RoleStaff, false)

	token := ts.login("maria", "s3cret")
	assert.NotEmpty(t, token)

	tests := []struct {
		name    string
		payload any
		status  int
	}{
		{"wrong password", map[string]string{"username": "maria", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"username": "nobody", "password": "s3cret"}, http.StatusUnauthorized},
		{"inactive account", map[string]string{"username": "ghost", "password": "s3cret"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"username": "maria"}, http.StatusBadRequest},
		{"unknown field", map[string]string{"username": "maria", "password": "s3cret", "pin": "1"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(http.MethodPost, "/auth/login", "", tt.payload)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestLoginResponseOmitsPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.account("maria", "s3cret", domain.RoleStaff, true)

	_, body := ts.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "maria", "password": "s3cret"})
	assert.NotContains(t, string(body), "password")
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(http.MethodGet, "/orders", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDashboardIsAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.account("maria", "s3cret", domain.RoleStaff, true)
	ts.account("boss", "s3cret", domain.RoleAdmin, true)
	staff := ts.login("maria", "s3cret")
	admin := ts.login("boss", "s3cret")

	for _, path := range []string{"/dashboard/metrics", "/dashboard/products", "/dashboard/cashiers"} {
		resp, _ := ts.do(http.MethodGet, path, staff, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)

		resp, body := ts.do(http.MethodGet, path, admin, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "%s: %s", path, body)
	}
}

func TestCreateAndFetchOrder(t *testing.T) {
	ts := newTestServer(t)
	ts.account("maria", "s3cret", domain.RoleStaff, true)
	token := ts.login("maria", "s3cret")
	pcm := storetest.Medicine(t, ts.store, "Paracetamol", "2.00")
	batch := storetest.Batch(t, ts.store, pcm.ID, "PCM-001", 10, storetest.Date(2027, 6, 1), 0)

	resp, body := ts.do(http.MethodPost, "/orders", token, map[string]any{
		"items":   []map[string]any{{"medicine_id": pcm.ID, "quantity": 5}},
		"payment": map[string]any{"amount_paid": "20"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	receipt := decodeBody[domain.Receipt](t, body)
	assert.Positive(t, receipt.InvoiceNumber)
	assert.Equal(t, "Test maria", receipt.Cashier)
	assert.True(t, decimal.RequireFromString("11.20").Equal(receipt.Total), receipt.Total.String())
	require.NotNil(t, receipt.Payment)
	assert.Equal(t, domain.DefaultPaymentMethod, receipt.Payment.Method)
	assert.True(t, decimal.RequireFromString("8.80").Equal(receipt.Payment.Change), receipt.Payment.Change.String())
	assert.Equal(t, int64(5), storetest.Quantity(t, ts.store, batch.ID))

	resp, body = ts.do(http.MethodGet, fmt.Sprintf("/orders/%d", receipt.InvoiceNumber), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	detail := decodeBody[domain.OrderDetail](t, body)
	assert.Equal(t, receipt.InvoiceNumber, detail.ID)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, "PCM-001", detail.Lines[0].BatchNumber)
	require.NotNil(t, detail.Payment)
	assert.Equal(t, "Cash", detail.Payment.Method)

	resp, body = ts.do(http.MethodGet, "/orders?cashier=maria", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var list struct {
		Data       []domain.OrderSummary `json:"data"`
		Pagination struct {
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, int64(1), list.Pagination.Total)
	assert.Equal(t, int64(1), list.Pagination.TotalPages)
	assert.Equal(t, int64(5), list.Data[0].ItemCount)

	resp, body = ts.do(http.MethodGet, "/orders?cashier=nobody", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Empty(t, list.Data)
}

func TestCreateOrderErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.account("maria", "s3cret", domain.RoleStaff, true)
	token := ts.login("maria", "s3cret")
	pcm := storetest.Medicine(t, ts.store, "Paracetamol", "2.00")
	batch := storetest.Batch(t, ts.store, pcm.ID, "PCM-001", 3, storetest.Date(2027, 6, 1), 0)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "empty cart",
			body:   map[string]any{"items": []any{}},
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "items", body["field"])
			},
		},
		{
			name:   "zero quantity",
			body:   map[string]any{"items": []map[string]any{{"medicine_id": pcm.ID, "quantity": 0}}},
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "items[0].quantity", body["field"])
			},
		},
		{
			name:   "insufficient stock",
			body:   map[string]any{"items": []map[string]any{{"medicine_id": pcm.ID, "quantity": 5}}},
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Paracetamol", body["medicine"])
				assert.EqualValues(t, 3, body["available"])
			},
		},
		{
			name:   "unknown medicine",
			body:   map[string]any{"items": []map[string]any{{"medicine_id": 9999, "quantity": 1}}},
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.EqualValues(t, 9999, body["medicine_id"])
				assert.NotContains(t, body, "available")
			},
		},
		{
			name: "underpaid",
			body: map[string]any{
				"items":   []map[string]any{{"medicine_id": pcm.ID, "quantity": 1}},
				"payment": map[string]any{"method": "Cash", "amount_paid": "1.00"},
			},
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "payment.amount_paid", body["field"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(http.MethodPost, "/orders", token, tt.body)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			tt.check(t, decodeBody[map[string]any](t, body))
		})
	}

	assert.Equal(t, int64(3), storetest.Quantity(t, ts.store, batch.ID))
	assert.Zero(t, storetest.Count(t, ts.store, "orders"))
}

func TestGetOrderNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.account("maria", "s3cret", domain.RoleStaff, true)
	token := ts.login("maria", "s3cret")

	resp, _ := ts.do(http.MethodGet, "/orders/42", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(http.MethodGet, "/orders/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListOrdersRejectsBadRange(t *testing.T) {
	ts := newTestServer(t)
	ts.account("maria", "s3cret", domain.RoleStaff, true)
	token := ts.login("maria", "s3cret")

	resp, _ := ts.do(http.MethodGet, "/orders?start_date=2026-10-10&end_date=2026-10-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(http.MethodGet, "/orders?start_date=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPaymentMethods(t *testing.T) {
	ts := newTestServer(t)
	ts.account("maria", "s3cret", domain.RoleStaff, true)
	token := ts.login("maria", "s3cret")

	resp, body := ts.do(http.MethodGet, "/payment-methods", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	methods := decodeBody[[]domain.PaymentMethod](t, body)
	require.NotEmpty(t, methods)
	assert.Equal(t, "Cash", methods[0].Name)
}

func TestStockAlerts(t *testing.T) {
	ts := newTestServer(t)
	ts.account("maria", "s3cret", domain.RoleStaff, true)
	token := ts.login("maria", "s3cret")
	pcm := storetest.Medicine(t, ts.store, "Paracetamol", "2.00")
	storetest.Batch(t, ts.store, pcm.ID, "PCM-001", 5, storetest.Date(2026, 11, 1), 10)
	storetest.Batch(t, ts.store, pcm.ID, "PCM-002", 50, storetest.Date(2028, 1, 1), 10)

	resp, body := ts.do(http.MethodGet, "/inventory/alerts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	alerts := decodeBody[[]domain.StockAlert](t, body)
	require.Len(t, alerts, 1)
	assert.Equal(t, "PCM-001", alerts[0].BatchNumber)
	assert.True(t, alerts[0].LowStock)
	assert.True(t, alerts[0].Expiring)

	resp, _ = ts.do(http.MethodGet, "/inventory/alerts?days=1000", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/health", "", nil)

	resp, body := ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pharmpos_http_requests_total{method="GET",route="/health",status="OK"} 1`)
}

type stubOrders struct {
	submitErr error
}

func (s stubOrders) SubmitOrder(context.Context, sales.SubmitOrderRequest) (*domain.Receipt, error) {
	return nil, s.submitErr
}

func (s stubOrders) GetOrder(context.Context, int64) (*domain.OrderDetail, error) {
	return nil, domain.ErrNotFound
}

func (s stubOrders) ListOrders(context.Context, domain.OrderFilter) ([]domain.OrderSummary, int64, error) {
	return nil, 0, nil
}

func (s stubOrders) PaymentMethods(context.Context) ([]domain.PaymentMethod, error) {
	return nil, nil
}

func TestSubmitErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"conflict", &domain.StockError{Kind: domain.ErrStockConflict, MedicineID: 1, BatchID: 2}, http.StatusConflict},
		{"invalid account", fmt.Errorf("settle: %w", domain.ErrInvalidAccount), http.StatusUnauthorized},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServerWith(t, stubOrders{submitErr: tt.err})
			ts.account("maria", "s3cret", domain.RoleStaff, true)
			token := ts.login("maria", "s3cret")

			resp, body := ts.do(http.MethodPost, "/orders", token, map[string]any{
				"items": []map[string]any{{"medicine_id": 1, "quantity": 1}},
			})
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.NotContains(t, string(body), "disk on fire")
		})
	}
}
