package port

import (
	"context"

	"github.com/rl1809/retail-pos/internal/core/domain"
)

// InventoryLedger is the authoritative store of per-product stock.
// Implementations must make ReserveAndDecrement a single atomic
// check-and-subtract with respect to concurrent callers on the same product.
type InventoryLedger interface {
	// ByProduct returns the record or domain.ErrInventoryNotFound.
	ByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error)

	// ReserveAndDecrement atomically checks quantity >= requested and
	// subtracts, returning the new quantity. Fails with
	// *domain.InsufficientStockError or domain.ErrInventoryNotFound.
	ReserveAndDecrement(ctx context.Context, productID string, quantity int) (int, error)

	// Restore adds quantity back after a partially applied sale is aborted.
	// Plain additive increment, no threshold re-validation.
	Restore(ctx context.Context, productID string, quantity int) error

	// Restock adds quantity and stamps the restock time.
	Restock(ctx context.Context, productID string, quantity int) (*domain.InventoryRecord, error)

	// Track creates the inventory record for a product entering stock tracking.
	Track(ctx context.Context, record domain.InventoryRecord) error

	// LowStock returns records at or below their minimum threshold.
	LowStock(ctx context.Context) ([]domain.InventoryRecord, error)

	// ByLocation returns records stored at the given location.
	ByLocation(ctx context.Context, location string) ([]domain.InventoryRecord, error)
}
