package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/retail-pos/internal/core/domain"
	"github.com/rl1809/retail-pos/internal/port"
)

// InventoryService is the stock management surface behind the HTTP layer:
// tracking new products, restocking and threshold reporting. Sale-time
// decrements go through SaleService, not here.
type InventoryService struct {
	ledger port.InventoryLedger
	logger *zap.Logger
}

func NewInventoryService(ledger port.InventoryLedger, logger *zap.Logger) *InventoryService {
	return &InventoryService{ledger: ledger, logger: logger}
}

// Track starts stock tracking for a product. Thresholds must satisfy
// 0 <= minimum <= maximum and the opening quantity must not be negative.
func (s *InventoryService) Track(ctx context.Context, record domain.InventoryRecord) error {
	if record.ProductID == "" {
		return fmt.Errorf("track inventory: product id is required")
	}
	if record.Quantity < 0 {
		return fmt.Errorf("track inventory: quantity must not be negative, got %d", record.Quantity)
	}
	if record.MinimumStock < 0 || record.MaximumStock < record.MinimumStock {
		return fmt.Errorf("track inventory: thresholds must satisfy 0 <= min <= max, got min=%d max=%d",
			record.MinimumStock, record.MaximumStock)
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	return s.ledger.Track(ctx, record)
}

// Restock adds stock and stamps the restock time.
func (s *InventoryService) Restock(ctx context.Context, productID string, quantity int) (*domain.InventoryRecord, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}
	record, err := s.ledger.Restock(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	s.logger.Info("restocked",
		zap.String("product_id", productID),
		zap.Int("added", quantity),
		zap.Int("quantity", record.Quantity))
	return record, nil
}

// ByProduct returns the record for a product.
func (s *InventoryService) ByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	return s.ledger.ByProduct(ctx, productID)
}

// LowStock returns records at or below their minimum threshold.
func (s *InventoryService) LowStock(ctx context.Context) ([]domain.InventoryRecord, error) {
	return s.ledger.LowStock(ctx)
}

// ByLocation returns records stored at the given location.
func (s *InventoryService) ByLocation(ctx context.Context, location string) ([]domain.InventoryRecord, error) {
	return s.ledger.ByLocation(ctx, location)
}
