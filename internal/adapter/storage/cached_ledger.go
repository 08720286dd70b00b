package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/retail-pos/internal/core/domain"
	"github.com/rl1809/retail-pos/internal/port"
)

// CachedLedger fronts a base ledger with a Redis stock cache so concurrent
// sale requests fail fast on sold-out products without hammering the
// relational store. Writes go through to the base ledger; the cache is the
// first gate, not the source of truth.
type CachedLedger struct {
	cache  *RedisStockCache
	base   port.InventoryLedger
	logger *zap.Logger
}

func NewCachedLedger(cache *RedisStockCache, base port.InventoryLedger, logger *zap.Logger) *CachedLedger {
	return &CachedLedger{cache: cache, base: base, logger: logger}
}

func (l *CachedLedger) ByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	return l.base.ByProduct(ctx, productID)
}

func (l *CachedLedger) ReserveAndDecrement(ctx context.Context, productID string, quantity int) (int, error) {
	outcome, value, err := l.cache.DecrementStock(ctx, productID, quantity)
	if err != nil {
		return 0, err
	}

	if outcome == decrMissing {
		// Warm the cache from the base ledger and retry once. SETNX keeps a
		// concurrent warm from clobbering in-flight decrements.
		rec, err := l.base.ByProduct(ctx, productID)
		if err != nil {
			return 0, err
		}
		if err := l.cache.SetStock(ctx, productID, rec.Quantity); err != nil {
			return 0, fmt.Errorf("warm stock cache: %w", err)
		}
		outcome, value, err = l.cache.DecrementStock(ctx, productID, quantity)
		if err != nil {
			return 0, err
		}
	}

	if outcome != decrOK {
		return 0, &domain.InsufficientStockError{
			ProductID: productID,
			Available: value,
			Requested: quantity,
		}
	}

	remaining, err := l.base.ReserveAndDecrement(ctx, productID, quantity)
	if err != nil {
		// The cache said yes but the base ledger did not; undo the cache
		// decrement before surfacing the base error.
		if cacheErr := l.cache.IncrementStock(ctx, productID, quantity); cacheErr != nil {
			l.logger.Error("failed to undo cache decrement",
				zap.String("product_id", productID), zap.Error(cacheErr))
		}
		return 0, err
	}
	return remaining, nil
}

func (l *CachedLedger) Restore(ctx context.Context, productID string, quantity int) error {
	if err := l.base.Restore(ctx, productID, quantity); err != nil {
		return err
	}
	return l.cache.IncrementStock(ctx, productID, quantity)
}

func (l *CachedLedger) Restock(ctx context.Context, productID string, quantity int) (*domain.InventoryRecord, error) {
	rec, err := l.base.Restock(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	if err := l.cache.ResetStock(ctx, productID, rec.Quantity); err != nil {
		return nil, fmt.Errorf("refresh stock cache: %w", err)
	}
	return rec, nil
}

func (l *CachedLedger) Track(ctx context.Context, record domain.InventoryRecord) error {
	if err := l.base.Track(ctx, record); err != nil {
		return err
	}
	return l.cache.SetStock(ctx, record.ProductID, record.Quantity)
}

func (l *CachedLedger) LowStock(ctx context.Context) ([]domain.InventoryRecord, error) {
	return l.base.LowStock(ctx)
}

func (l *CachedLedger) ByLocation(ctx context.Context, location string) ([]domain.InventoryRecord, error) {
	return l.base.ByLocation(ctx, location)
}
