package api

import (
	"net/http"

	"pharmpos/m/domain"
)

const (
	defaultAlertDays = 30
	maxAlertDays     = 365
)

func (h *Handler) stockAlerts(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleStaff) {
		return
	}
	days, err := queryInt(r, "days", defaultAlertDays)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if days < 0 || days > maxAlertDays {
		respondError(w, http.StatusBadRequest, "days must be between 0 and 365")
		return
	}

	alerts, err := h.reports.StockAlerts(r.Context(), h.now(), days)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (h *Handler) dashboardMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	m, err := h.reports.DashboardMetrics(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

type productListResponse struct {
	Data       []domain.ProductSales `json:"data"`
	Pagination pagination            `json:"pagination"`
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	filter, err := pageFilter(r, 6)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	products, total, err := h.reports.TopProducts(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, productListResponse{Data: products, Pagination: newPagination(filter, total)})
}

func (h *Handler) cashiers(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	names, err := h.reports.ListCashiers(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, names)
}
