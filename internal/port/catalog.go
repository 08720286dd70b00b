package port

import (
	"context"

	"github.com/rl1809/retail-pos/internal/core/domain"
)

// Catalog is the read-only product lookup consulted at sale time.
// Catalog mutation belongs to the surrounding CRUD layer, not the core.
type Catalog interface {
	// ProductByID returns the product or domain.ErrProductNotFound.
	ProductByID(ctx context.Context, id string) (*domain.Product, error)

	// ProductByBarcode returns the product or domain.ErrProductNotFound.
	ProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
}
