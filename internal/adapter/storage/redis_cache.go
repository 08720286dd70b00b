package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "stock:"

// decrementStockScript checks and subtracts in one round trip. Returns
// {1, remaining} on success, {0, available} when stock does not cover the
// request, {-1, 0} when the key is not loaded.
var decrementStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return {-1, 0}
end

current = tonumber(current)
if current >= quantity then
	redis.call('DECRBY', key, quantity)
	return {1, current - quantity}
end

return {0, current}
`)

// Outcomes of a cache-side decrement attempt.
const (
	decrOK           = 1
	decrInsufficient = 0
	decrMissing      = -1
)

// RedisStockCache keeps per-product quantities in Redis so the sale hot
// path never touches the relational store. It is composed in front of a
// base ledger by CachedLedger.
type RedisStockCache struct {
	client *redis.Client
}

func NewRedisStockCache(client *redis.Client) *RedisStockCache {
	return &RedisStockCache{client: client}
}

// DecrementStock atomically subtracts quantity. The second return value is
// the remaining quantity on success, or the available quantity on
// insufficiency.
func (r *RedisStockCache) DecrementStock(ctx context.Context, productID string, quantity int) (int, int, error) {
	key := stockKeyPrefix + productID

	result, err := decrementStockScript.Run(ctx, r.client, []string{key}, quantity).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("run decrement script: %w", err)
	}
	if len(result) != 2 {
		return 0, 0, fmt.Errorf("unexpected script reply: %v", result)
	}
	return int(result[0]), int(result[1]), nil
}

// IncrementStock restores quantity after a rollback.
func (r *RedisStockCache) IncrementStock(ctx context.Context, productID string, quantity int) error {
	return r.client.IncrBy(ctx, stockKeyPrefix+productID, int64(quantity)).Err()
}

// SetStock loads a quantity into the cache, only when absent so a
// concurrent warm cannot clobber in-flight decrements.
func (r *RedisStockCache) SetStock(ctx context.Context, productID string, quantity int) error {
	return r.client.SetNX(ctx, stockKeyPrefix+productID, quantity, 0).Err()
}

// ResetStock force-sets a quantity, used by restock and tests.
func (r *RedisStockCache) ResetStock(ctx context.Context, productID string, quantity int) error {
	return r.client.Set(ctx, stockKeyPrefix+productID, quantity, 0).Err()
}
