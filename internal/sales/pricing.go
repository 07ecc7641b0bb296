package sales

import (
	"github.com/shopspring/decimal"

	"pharmpos/m/domain"
)

var (
	discountRate  = decimal.RequireFromString("0.20")
	taxMultiplier = decimal.RequireFromString("1.12")
)

// Totals holds the priced amounts of an order, each rounded to cents.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals prices lines. The discount is 20% of the subtotal and the
// total carries 12% tax on the discounted amount. Tax applies to the rounded
// discount so receipt arithmetic adds up.
func ComputeTotals(lines []domain.OrderLine, discount bool) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	subtotal = subtotal.Round(2)

	off := decimal.Zero
	if discount {
		off = subtotal.Mul(discountRate).Round(2)
	}
	return Totals{
		Subtotal: subtotal,
		Discount: off,
		Total:    subtotal.Sub(off).Mul(taxMultiplier).Round(2),
	}
}
