package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPaymentMethod is used by callers that accept a payment without
// naming a method.
const DefaultPaymentMethod = "Cash"

// Order is the persisted header of a completed sale. It is never updated
// after commit.
type Order struct {
	ID             int64           `db:"id" json:"id"`
	CashierID      int64           `db:"cashier_id" json:"cashier_id"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
}

type OrderLine struct {
	ID         int64           `db:"id" json:"id"`
	OrderID    int64           `db:"order_id" json:"order_id"`
	BatchID    int64           `db:"batch_id" json:"batch_id"`
	MedicineID int64           `db:"medicine_id" json:"medicine_id"`
	Quantity   int64           `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// LineTotal is the unrounded price of the line.
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

type Payment struct {
	ID              int64           `db:"id" json:"id"`
	OrderID         int64           `db:"order_id" json:"order_id"`
	PaymentMethodID int64           `db:"payment_type_id" json:"payment_method_id"`
	AmountPaid      decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	ChangeAmount    decimal.Decimal `db:"change_amount" json:"change_amount"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

type PaymentMethod struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Receipt is returned to the cashier after a successful sale.
type Receipt struct {
	InvoiceNumber int64           `json:"invoice_number"`
	Cashier       string          `json:"cashier"`
	CreatedAt     time.Time       `json:"created_at"`
	Lines         []ReceiptLine   `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Payment       *ReceiptPayment `json:"payment,omitempty"`
}

type ReceiptLine struct {
	MedicineID   int64           `json:"medicine_id"`
	MedicineName string          `json:"medicine_name"`
	BatchID      int64           `json:"batch_id"`
	BatchNumber  string          `json:"batch_number"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

type ReceiptPayment struct {
	Method     string          `json:"method"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Change     decimal.Decimal `json:"change"`
}

// OrderDetail is the read model returned by order lookup.
type OrderDetail struct {
	Order
	Cashier string            `json:"cashier"`
	Lines   []OrderDetailLine `json:"lines"`
	Payment *PaymentDetail    `json:"payment,omitempty"`
}

type OrderDetailLine struct {
	OrderLine
	BatchNumber  string `db:"batch_number" json:"batch_number"`
	MedicineName string `db:"medicine_name" json:"medicine_name"`
	Dosage       string `db:"dosage" json:"dosage"`
	Form         string `db:"form" json:"form"`
}

type PaymentDetail struct {
	Payment
	Method string `db:"method" json:"method"`
}

// OrderSummary is one row of the order history listing.
type OrderSummary struct {
	ID             int64               `db:"id" json:"id"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	Cashier        string              `db:"cashier" json:"cashier"`
	DiscountAmount decimal.Decimal     `db:"discount_amount" json:"discount_amount"`
	TotalAmount    decimal.Decimal     `db:"total_amount" json:"total_amount"`
	ItemCount      int64               `db:"item_count" json:"item_count"`
	Method         *string             `db:"method" json:"payment_method,omitempty"`
	AmountPaid     decimal.NullDecimal `db:"amount_paid" json:"amount_paid"`
}

// OrderFilter bounds an order listing. Zero From/To leave that side open and
// To is exclusive. Cashier matches a substring of the cashier's name.
type OrderFilter struct {
	From    time.Time
	To      time.Time
	Cashier string
	Page    int
	Limit   int
}

// Normalize clamps paging values into a usable range.
func (f OrderFilter) Normalize() OrderFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}

// Offset returns the row offset of the current page.
func (f OrderFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// DashboardMetrics aggregates sales over a period.
type DashboardMetrics struct {
	TotalSales       decimal.Decimal `db:"total_sales" json:"total_sales"`
	TransactionCount int64           `db:"transaction_count" json:"transaction_count"`
	ItemsSold        int64           `db:"items_sold" json:"items_sold"`
	MedicinesInStock int64           `db:"medicines_in_stock" json:"medicines_in_stock"`
}

// ProductSales is one row of the best-seller report.
type ProductSales struct {
	MedicineID     int64           `db:"medicine_id" json:"medicine_id"`
	Name           string          `db:"name" json:"name"`
	UnitsSold      int64           `db:"units_sold" json:"units_sold"`
	SalesAmount    decimal.Decimal `db:"sales_amount" json:"sales_amount"`
	AvailableStock int64           `db:"available_stock" json:"available_stock"`
}
