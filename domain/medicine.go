package domain

import "github.com/shopspring/decimal"

type Medicine struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	Dosage       string          `db:"dosage" json:"dosage"`
	Form         string          `db:"form" json:"form"`
	Manufacturer string          `db:"manufacturer" json:"manufacturer"`
}
