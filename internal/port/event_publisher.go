package port

import (
	"context"

	"github.com/rl1809/retail-pos/internal/core/domain"
)

// EventPublisher fans out domain events to interested consumers (reporting,
// replenishment). Publishing is best effort from the coordinator's point of
// view: a failed publish never fails the sale.
type EventPublisher interface {
	PublishSaleRecorded(ctx context.Context, sale *domain.SaleTransaction) error
	Close() error
}
