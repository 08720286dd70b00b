package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrInventoryNotFound   = errors.New("inventory record not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrEmptySale           = errors.New("sale must contain at least one item")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidDiscount     = errors.New("discount exceeds line value")
	ErrDuplicateReceipt    = errors.New("receipt id already in use")
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")
)

// InsufficientStockError carries the quantities the caller needs to render
// a useful rejection. It matches ErrInsufficientStock under errors.Is.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
