package api

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"pharmpos/m/domain"
	"pharmpos/m/internal/sales"
)

type orderItemRequest struct {
	MedicineID int64 `json:"medicine_id"`
	Quantity   int64 `json:"quantity"`
}

type paymentRequest struct {
	Method     string           `json:"method"`
	AmountPaid decimal.Decimal  `json:"amount_paid"`
	Change     *decimal.Decimal `json:"change,omitempty"`
}

type createOrderRequest struct {
	Items    []orderItemRequest `json:"items"`
	Discount bool               `json:"discount"`
	Payment  *paymentRequest    `json:"payment,omitempty"`
}

// toSubmit converts the wire request into a processor request for cashierID.
// A payment without a method is recorded as cash.
func (req createOrderRequest) toSubmit(cashierID int64) sales.SubmitOrderRequest {
	out := sales.SubmitOrderRequest{
		CashierID: cashierID,
		Items:     make([]sales.CartItem, len(req.Items)),
		Discount:  req.Discount,
	}
	for i, item := range req.Items {
		out.Items[i] = sales.CartItem{MedicineID: item.MedicineID, Quantity: item.Quantity}
	}
	if req.Payment != nil {
		method := strings.TrimSpace(req.Payment.Method)
		if method == "" {
			method = domain.DefaultPaymentMethod
		}
		out.Payment = &sales.PaymentInput{
			Method:     method,
			AmountPaid: req.Payment.AmountPaid,
			Change:     req.Payment.Change,
		}
	}
	return out
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleStaff) {
		return
	}
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.orders.SubmitOrder(r.Context(), req.toSubmit(userID(r)))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleStaff) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

type orderListResponse struct {
	Data       []domain.OrderSummary `json:"data"`
	Pagination pagination            `json:"pagination"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleStaff) {
		return
	}
	filter, err := pageFilter(r, 10)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if cashier := r.URL.Query().Get("cashier"); cashier != "all" {
		filter.Cashier = cashier
	}

	orders, total, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orderListResponse{Data: orders, Pagination: newPagination(filter, total)})
}

func (h *Handler) paymentMethods(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleStaff) {
		return
	}
	methods, err := h.orders.PaymentMethods(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, methods)
}
