package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisDecrementStock_Success(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisStockCache(client)

	client.Del(ctx, "stock:test-item")
	cache.ResetStock(ctx, "test-item", 10)

	outcome, remaining, err := cache.DecrementStock(ctx, "test-item", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != decrOK {
		t.Errorf("expected success outcome, got %d", outcome)
	}
	if remaining != 7 {
		t.Errorf("expected remaining 7, got %d", remaining)
	}

	stock, _ := client.Get(ctx, "stock:test-item").Int()
	if stock != 7 {
		t.Errorf("expected stock 7, got %d", stock)
	}
}

func TestRedisDecrementStock_Insufficient(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisStockCache(client)

	client.Del(ctx, "stock:test-item")
	cache.ResetStock(ctx, "test-item", 5)

	outcome, available, err := cache.DecrementStock(ctx, "test-item", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != decrInsufficient {
		t.Errorf("expected insufficient outcome, got %d", outcome)
	}
	if available != 5 {
		t.Errorf("expected available 5, got %d", available)
	}

	stock, _ := client.Get(ctx, "stock:test-item").Int()
	if stock != 5 {
		t.Errorf("expected stock unchanged at 5, got %d", stock)
	}
}

func TestRedisDecrementStock_KeyNotLoaded(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisStockCache(client)

	client.Del(ctx, "stock:nonexistent")

	outcome, _, err := cache.DecrementStock(ctx, "nonexistent", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != decrMissing {
		t.Errorf("expected missing outcome, got %d", outcome)
	}
}

func TestRedisDecrementStock_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisStockCache(client)

	initialStock := 20
	totalRequests := 50

	client.Del(ctx, "stock:concurrent-test")
	cache.ResetStock(ctx, "concurrent-test", initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, _, err := cache.DecrementStock(ctx, "concurrent-test", 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if outcome == decrOK {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	stock, _ := client.Get(ctx, "stock:concurrent-test").Int()
	if stock != 0 {
		t.Errorf("expected stock 0, got %d", stock)
	}
}

func TestRedisIncrementStock(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisStockCache(client)

	client.Del(ctx, "stock:test-item")
	cache.ResetStock(ctx, "test-item", 5)

	if err := cache.IncrementStock(ctx, "test-item", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stock, _ := client.Get(ctx, "stock:test-item").Int()
	if stock != 8 {
		t.Errorf("expected stock 8, got %d", stock)
	}
}

func TestRedisSetStock_DoesNotClobber(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisStockCache(client)

	client.Del(ctx, "stock:test-item")
	cache.ResetStock(ctx, "test-item", 5)

	// SETNX must not overwrite a loaded quantity.
	if err := cache.SetStock(ctx, "test-item", 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stock, _ := client.Get(ctx, "stock:test-item").Int()
	if stock != 5 {
		t.Errorf("expected stock 5, got %d", stock)
	}
}

func TestCachedLedger_WarmsFromBase(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisStockCache(client)
	base := seededStore(t, "warm-item", 10)

	client.Del(ctx, "stock:warm-item")

	ledger := NewCachedLedger(cache, base, zap.NewNop())

	remaining, err := ledger.ReserveAndDecrement(ctx, "warm-item", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remaining != 7 {
		t.Errorf("expected remaining 7, got %d", remaining)
	}

	// Both the cache and the base ledger must reflect the decrement.
	stock, _ := client.Get(ctx, "stock:warm-item").Int()
	if stock != 7 {
		t.Errorf("expected cached stock 7, got %d", stock)
	}
	rec, _ := base.ByProduct(ctx, "warm-item")
	if rec.Quantity != 7 {
		t.Errorf("expected base stock 7, got %d", rec.Quantity)
	}
}

func TestCachedLedger_RestoreUpdatesBoth(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisStockCache(client)
	base := seededStore(t, "restore-item", 10)

	client.Del(ctx, "stock:restore-item")

	ledger := NewCachedLedger(cache, base, zap.NewNop())

	if _, err := ledger.ReserveAndDecrement(ctx, "restore-item", 4); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if err := ledger.Restore(ctx, "restore-item", 4); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	stock, _ := client.Get(ctx, "stock:restore-item").Int()
	if stock != 10 {
		t.Errorf("expected cached stock 10, got %d", stock)
	}
	rec, _ := base.ByProduct(ctx, "restore-item")
	if rec.Quantity != 10 {
		t.Errorf("expected base stock 10, got %d", rec.Quantity)
	}
}
