package domain

import (
	"fmt"
	"strings"
)

// Product is a catalog entry. Prices are integer cents; the price carried
// here is a snapshot at lookup time, sale lines copy it rather than
// referencing it.
type Product struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	Category    string
	Barcode     string
}

// NewProduct validates the fields that the rest of the core relies on:
// a product that reaches a sale line always has a name and a positive price.
func NewProduct(id, name string, priceCents int64) (*Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("product %s: name must not be empty", id)
	}
	if priceCents <= 0 {
		return nil, fmt.Errorf("product %s: price must be positive, got %d", id, priceCents)
	}
	return &Product{ID: id, Name: name, PriceCents: priceCents}, nil
}

// ProductRef identifies a product either by ID or by barcode.
// ID wins when both are set.
type ProductRef struct {
	ProductID string
	Barcode   string
}

func (r ProductRef) IsZero() bool {
	return r.ProductID == "" && r.Barcode == ""
}
