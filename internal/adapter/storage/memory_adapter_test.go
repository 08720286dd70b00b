package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rl1809/retail-pos/internal/core/domain"
)

func seededStore(t *testing.T, productID string, stock int) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	if err := store.SaveProduct(domain.Product{ID: productID, Name: productID, PriceCents: 1000}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := store.Track(context.Background(), domain.InventoryRecord{
		ProductID: productID, Quantity: stock, MinimumStock: 2, MaximumStock: 100, Location: "aisle-1",
	}); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return store
}

func TestMemoryReserveAndDecrement(t *testing.T) {
	store := seededStore(t, "widget", 10)
	ctx := context.Background()

	remaining, err := store.ReserveAndDecrement(ctx, "widget", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remaining != 7 {
		t.Errorf("expected remaining 7, got %d", remaining)
	}
}

func TestMemoryReserveAndDecrement_Insufficient(t *testing.T) {
	store := seededStore(t, "widget", 5)
	ctx := context.Background()

	_, err := store.ReserveAndDecrement(ctx, "widget", 10)
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stockErr.Available != 5 || stockErr.Requested != 10 {
		t.Errorf("unexpected fields: %+v", stockErr)
	}

	rec, _ := store.ByProduct(ctx, "widget")
	if rec.Quantity != 5 {
		t.Errorf("expected stock unchanged at 5, got %d", rec.Quantity)
	}
}

func TestMemoryReserveAndDecrement_NotTracked(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.ReserveAndDecrement(context.Background(), "ghost", 1)
	if !errors.Is(err, domain.ErrInventoryNotFound) {
		t.Errorf("expected ErrInventoryNotFound, got: %v", err)
	}
}

func TestMemoryRestore_ExactCompensation(t *testing.T) {
	store := seededStore(t, "widget", 10)
	ctx := context.Background()

	if _, err := store.ReserveAndDecrement(ctx, "widget", 4); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if err := store.Restore(ctx, "widget", 4); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	rec, _ := store.ByProduct(ctx, "widget")
	if rec.Quantity != 10 {
		t.Errorf("expected stock back to 10, got %d", rec.Quantity)
	}
}

func TestMemoryConcurrentDecrement(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	store := seededStore(t, "widget", initialStock)
	ctx := context.Background()

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ReserveAndDecrement(ctx, "widget", 1); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	rec, _ := store.ByProduct(ctx, "widget")
	if rec.Quantity != 0 {
		t.Errorf("expected stock 0, got %d", rec.Quantity)
	}
}

func TestMemoryRestockStampsTime(t *testing.T) {
	store := seededStore(t, "widget", 5)
	ctx := context.Background()

	rec, err := store.Restock(ctx, "widget", 10)
	if err != nil {
		t.Fatalf("restock failed: %v", err)
	}
	if rec.Quantity != 15 {
		t.Errorf("expected quantity 15, got %d", rec.Quantity)
	}
	if rec.LastRestockedAt.IsZero() {
		t.Error("expected LastRestockedAt to be stamped")
	}
}

func TestMemoryLowStock(t *testing.T) {
	store := seededStore(t, "widget", 2) // minimum is 2, so 2 is low
	ctx := context.Background()

	if err := store.SaveProduct(domain.Product{ID: "gadget", Name: "gadget", PriceCents: 500}); err != nil {
		t.Fatal(err)
	}
	if err := store.Track(ctx, domain.InventoryRecord{
		ProductID: "gadget", Quantity: 50, MinimumStock: 5, MaximumStock: 100,
	}); err != nil {
		t.Fatal(err)
	}

	low, err := store.LowStock(ctx)
	if err != nil {
		t.Fatalf("low stock query failed: %v", err)
	}
	if len(low) != 1 || low[0].ProductID != "widget" {
		t.Errorf("expected only widget low, got %+v", low)
	}
}

func TestMemoryByLocation(t *testing.T) {
	store := seededStore(t, "widget", 5) // aisle-1

	records, err := store.ByLocation(context.Background(), "aisle-1")
	if err != nil {
		t.Fatalf("location query failed: %v", err)
	}
	if len(records) != 1 || records[0].ProductID != "widget" {
		t.Errorf("expected widget in aisle-1, got %+v", records)
	}

	records, _ = store.ByLocation(context.Background(), "aisle-9")
	if len(records) != 0 {
		t.Errorf("expected no records in aisle-9, got %+v", records)
	}
}

func TestMemoryBarcodeUniqueness(t *testing.T) {
	store := NewMemoryStore()

	if err := store.SaveProduct(domain.Product{ID: "p1", Name: "A", PriceCents: 100, Barcode: "111"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveProduct(domain.Product{ID: "p2", Name: "B", PriceCents: 100, Barcode: "111"}); err == nil {
		t.Error("expected error for duplicate barcode")
	}
}

func TestMemoryProductsByCategory(t *testing.T) {
	store := NewMemoryStore()

	for _, p := range []domain.Product{
		{ID: "p1", Name: "A", PriceCents: 100, Category: "drinks"},
		{ID: "p2", Name: "B", PriceCents: 200, Category: "drinks"},
		{ID: "p3", Name: "C", PriceCents: 300, Category: "snacks"},
	} {
		if err := store.SaveProduct(p); err != nil {
			t.Fatal(err)
		}
	}

	drinks, err := store.ProductsByCategory(context.Background(), "drinks")
	if err != nil {
		t.Fatalf("category query failed: %v", err)
	}
	if len(drinks) != 2 || drinks[0].ID != "p1" || drinks[1].ID != "p2" {
		t.Errorf("unexpected result: %+v", drinks)
	}
}

func TestMemorySaleRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sale := &domain.SaleTransaction{
		ID:        "sale-1",
		ReceiptID: "REC-11111111",
		Lines: []domain.SaleLine{
			{ProductID: "widget", Quantity: 2, UnitPriceCents: 1000, SubtotalCents: 2000},
		},
		TotalCents: 2000,
	}
	if err := store.Create(ctx, sale); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	exists, _ := store.ReceiptExists(ctx, "REC-11111111")
	if !exists {
		t.Error("expected receipt to exist")
	}

	got, err := store.ByReceipt(ctx, "REC-11111111")
	if err != nil || got == nil {
		t.Fatalf("receipt lookup failed: %v, %v", got, err)
	}
	if got.ID != "sale-1" {
		t.Errorf("expected sale-1, got %s", got.ID)
	}

	if err := store.Create(ctx, sale); err == nil {
		t.Error("expected duplicate receipt rejection")
	}
}
