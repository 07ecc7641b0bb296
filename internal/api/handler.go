package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pharmpos/m/domain"
	"pharmpos/m/internal/logging"
	"pharmpos/m/internal/metrics"
	"pharmpos/m/internal/sales"
)

// OrderService is the sales use cases the API exposes.
type OrderService interface {
	SubmitOrder(ctx context.Context, req sales.SubmitOrderRequest) (*domain.Receipt, error)
	GetOrder(ctx context.Context, id int64) (*domain.OrderDetail, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderSummary, int64, error)
	PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
}

// AccountStore looks up accounts for login.
type AccountStore interface {
	AccountByUsername(ctx context.Context, username string) (domain.Account, error)
}

// ReportStore serves the dashboard and inventory alert queries.
type ReportStore interface {
	DashboardMetrics(ctx context.Context, from, to time.Time) (domain.DashboardMetrics, error)
	TopProducts(ctx context.Context, filter domain.OrderFilter) ([]domain.ProductSales, int64, error)
	StockAlerts(ctx context.Context, now time.Time, days int) ([]domain.StockAlert, error)
	ListCashiers(ctx context.Context) ([]string, error)
}

// Options carries the optional collaborators of a Handler.
type Options struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Tracer      trace.Tracer
	CORSOrigins []string
	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error
	Now   func() time.Time
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	orders   OrderService
	accounts AccountStore
	reports  ReportStore
	secret   string

	log     *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	origins []string
	ready   func(ctx context.Context) error
	now     func() time.Time
}

// New constructs a Handler.
func New(orders OrderService, accounts AccountStore, reports ReportStore, secret string, opts Options) *Handler {
	h := &Handler{
		orders:   orders,
		accounts: accounts,
		reports:  reports,
		secret:   secret,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		origins:  opts.CORSOrigins,
		ready:    opts.Ready,
		now:      opts.Now,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.tracer == nil {
		h.tracer = otel.Tracer("pharmpos/api")
	}
	if h.now == nil {
		h.now = time.Now
	}
	if len(h.origins) == 0 {
		h.origins = []string{"*"}
	}
	return h
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
		})

		pr.Get("/payment-methods", h.paymentMethods)
		pr.Get("/inventory/alerts", h.stockAlerts)

		pr.Route("/dashboard", func(r chi.Router) {
			r.Get("/metrics", h.dashboardMetrics)
			r.Get("/products", h.topProducts)
			r.Get("/cashiers", h.cashiers)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health_check_failed", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helpers

type errorResponse struct {
	Error      string `json:"error"`
	Field      string `json:"field,omitempty"`
	MedicineID int64  `json:"medicine_id,omitempty"`
	Medicine   string `json:"medicine,omitempty"`
	Available  *int64 `json:"available,omitempty"`
}

// writeDomainError maps service errors to HTTP responses. Unexpected errors
// are logged and reported without detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	var se *domain.StockError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.As(err, &se):
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrStockConflict) {
			status = http.StatusConflict
		}
		resp := errorResponse{Error: se.Error(), MedicineID: se.MedicineID, Medicine: se.MedicineName}
		if errors.Is(err, domain.ErrInsufficientStock) {
			available := se.Available
			resp.Available = &available
		}
		respondJSON(w, status, resp)
	case errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidAccount):
		respondError(w, http.StatusUnauthorized, "account is not allowed to record sales")
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		logging.FromContext(r.Context()).Error("request_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Invalid(name, "must be an integer")
	}
	return n, nil
}

// dateRange parses the optional start_date and end_date query parameters as
// whole UTC days. The returned upper bound is exclusive.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return from, to, domain.Invalid("start_date", "must be YYYY-MM-DD")
		}
		from = d
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return from, to, domain.Invalid("end_date", "must be YYYY-MM-DD")
		}
		to = d.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return from, to, domain.Invalid("end_date", "must not be before start_date")
	}
	return from, to, nil
}

// pageFilter builds an OrderFilter from the date range and paging query
// parameters.
func pageFilter(r *http.Request, defLimit int) (domain.OrderFilter, error) {
	from, to, err := dateRange(r)
	if err != nil {
		return domain.OrderFilter{}, err
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return domain.OrderFilter{}, err
	}
	limit, err := queryInt(r, "limit", defLimit)
	if err != nil {
		return domain.OrderFilter{}, err
	}
	return domain.OrderFilter{From: from, To: to, Page: page, Limit: limit}.Normalize(), nil
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func newPagination(f domain.OrderFilter, total int64) pagination {
	pages := total / int64(f.Limit)
	if total%int64(f.Limit) != 0 {
		pages++
	}
	return pagination{Page: f.Page, Limit: f.Limit, Total: total, TotalPages: pages}
}
