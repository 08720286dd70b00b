package port

import (
	"context"
	"time"

	"github.com/rl1809/retail-pos/internal/core/domain"
)

// SaleRepository persists completed sale transactions. Sales are written
// once and never updated.
type SaleRepository interface {
	// Create persists a finished sale with its lines.
	Create(ctx context.Context, sale *domain.SaleTransaction) error

	// ByID returns the sale, or (nil, nil) when no sale has that id.
	ByID(ctx context.Context, id string) (*domain.SaleTransaction, error)

	// ByReceipt returns the sale with the given receipt id, or (nil, nil).
	ByReceipt(ctx context.Context, receiptID string) (*domain.SaleTransaction, error)

	// ReceiptExists reports whether a sale already uses the receipt id.
	ReceiptExists(ctx context.Context, receiptID string) (bool, error)

	// Between returns sales created in [from, to], most recent first.
	Between(ctx context.Context, from, to time.Time) ([]domain.SaleTransaction, error)

	// ByCustomer returns sales for the given customer name.
	ByCustomer(ctx context.Context, customerName string) ([]domain.SaleTransaction, error)

	// ByCashier returns sales recorded by the given cashier.
	ByCashier(ctx context.Context, cashierName string) ([]domain.SaleTransaction, error)
}
