package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("sales: invalid request")
	ErrInvalidAccount    = errors.New("sales: invalid account")
	ErrOutOfStock        = errors.New("inventory: out of stock")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrStockConflict     = errors.New("inventory: concurrent stock conflict")
	ErrNotFound          = errors.New("not found")
)

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StockError reports why a cart line could not be settled. Kind is one of
// ErrOutOfStock, ErrInsufficientStock or ErrStockConflict.
type StockError struct {
	Kind         error
	MedicineID   int64
	MedicineName string
	Available    int64
	BatchID      int64
}

func (e *StockError) Error() string {
	name := e.MedicineName
	if name == "" {
		name = fmt.Sprintf("medicine %d", e.MedicineID)
	}
	switch e.Kind {
	case ErrInsufficientStock:
		return fmt.Sprintf("%s: %s has only %d available", e.Kind, name, e.Available)
	case ErrStockConflict:
		return fmt.Sprintf("%s: batch %d of %s changed during settlement", e.Kind, e.BatchID, name)
	default:
		return fmt.Sprintf("%s: %s", ErrOutOfStock, name)
	}
}

func (e *StockError) Unwrap() error {
	if e.Kind == nil {
		return ErrOutOfStock
	}
	return e.Kind
}
