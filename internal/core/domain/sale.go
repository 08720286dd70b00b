package domain

import "time"

// SaleLine is one line of a recorded sale. UnitPriceCents is the price
// snapshot taken when the sale was created; later catalog changes do not
// affect recorded lines.
type SaleLine struct {
	ProductID      string
	ProductName    string
	Quantity       int
	UnitPriceCents int64
	DiscountCents  int64
	SubtotalCents  int64
}

// SaleTransaction is an immutable record of one completed sale.
// Corrections are modeled as new transactions, never as mutation.
type SaleTransaction struct {
	ID            string
	ReceiptID     string
	CustomerName  string
	CashierName   string
	PaymentMethod string
	Lines         []SaleLine
	TotalCents    int64
	CreatedAt     time.Time
}

// SaleRequest is the inbound shape handed to the coordinator by the
// HTTP/CLI layer after basic shape validation.
type SaleRequest struct {
	CustomerName  string
	CashierName   string
	PaymentMethod string
	ReceiptID     string // optional, generated when empty
	Items         []SaleRequestItem
}

type SaleRequestItem struct {
	Ref               ProductRef
	Quantity          int
	UnitPriceOverride *int64 // cents, nil means use the catalog price
	DiscountCents     int64
}
