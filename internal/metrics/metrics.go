package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sales outcomes used as the outcome label of sales_orders_total.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeOutOfStock   = "out_of_stock"
	OutcomeConflict     = "conflict"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

// Metrics holds the application's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	ordersTotal    *prometheus.CounterVec
	submitDuration prometheus.Histogram
	unitsSold      prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry so registrations never collide.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		ordersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_orders_total",
			Help: "Submitted orders by outcome.",
		}, []string{"outcome"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "sales_submit_duration_seconds",
			Help:    "Latency of order submission including retries.",
			Buckets: prometheus.DefBuckets,
		}),
		unitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "inventory_units_sold_total",
			Help: "Units removed from inventory by committed orders.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.ordersTotal, m.submitDuration, m.unitsSold, m.httpRequests, m.httpDuration)
	return m
}

// ObserveOrder records the outcome and latency of one SubmitOrder call.
func (m *Metrics) ObserveOrder(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ordersTotal.WithLabelValues(outcome).Inc()
	m.submitDuration.Observe(d.Seconds())
}

// AddUnitsSold counts units decremented by a committed order.
func (m *Metrics) AddUnitsSold(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.unitsSold.Add(float64(n))
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, http.StatusText(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
