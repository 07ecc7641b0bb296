package sales

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pharmpos/m/domain"
)

// CartItem is one requested medicine quantity.
type CartItem struct {
	MedicineID int64
	Quantity   int64
}

// PaymentInput is the tender supplied with an order. Change is optional;
// when present it must not be negative. The stored change is always
// AmountPaid minus the order total.
type PaymentInput struct {
	Method     string
	AmountPaid decimal.Decimal
	Change     *decimal.Decimal
}

type SubmitOrderRequest struct {
	CashierID int64
	Items     []CartItem
	Discount  bool
	Payment   *PaymentInput
}

// Validate checks the request shape before any data is read.
func (r SubmitOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return domain.Invalid("items", "must not be empty")
	}
	for i, item := range r.Items {
		if item.MedicineID <= 0 {
			return domain.Invalid(fmt.Sprintf("items[%d].medicine_id", i), "must be positive")
		}
		if item.Quantity <= 0 {
			return domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		}
	}
	return nil
}

// validatePayment checks the tender against the computed total.
func validatePayment(p *PaymentInput, total decimal.Decimal) error {
	if strings.TrimSpace(p.Method) == "" {
		return domain.Invalid("payment.method", "is required")
	}
	if p.AmountPaid.LessThan(total) {
		return domain.Invalid("payment.amount_paid", fmt.Sprintf("%s is less than total %s", p.AmountPaid.StringFixed(2), total.StringFixed(2)))
	}
	if p.Change != nil && p.Change.IsNegative() {
		return domain.Invalid("payment.change", "must not be negative")
	}
	return nil
}
