package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOrder(t *testing.T) {
	m := New("pharmpos", prometheus.NewRegistry())

	m.ObserveOrder(OutcomeSuccess, 10*time.Millisecond)
	m.ObserveOrder(OutcomeSuccess, 20*time.Millisecond)
	m.ObserveOrder(OutcomeConflict, time.Millisecond)
	m.AddUnitsSold(7)
	m.AddUnitsSold(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersTotal.WithLabelValues(OutcomeConflict)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.unitsSold))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOrder(OutcomeError, time.Second)
		m.AddUnitsSold(3)
		m.ObserveHTTP(http.MethodGet, "/health", http.StatusOK, time.Second)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New("pharmpos", prometheus.NewRegistry())
	m.ObserveHTTP(http.MethodPost, "/orders", http.StatusCreated, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pharmpos_http_requests_total{method="POST",route="/orders",status="Created"} 1`)
}
