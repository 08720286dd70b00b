package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/retail-pos/internal/adapter/event"
	"github.com/rl1809/retail-pos/internal/adapter/storage"
	"github.com/rl1809/retail-pos/internal/core/domain"
	"github.com/rl1809/retail-pos/internal/core/service"
)

const (
	productID     = "stress-widget"
	initialStock  = 20
	totalRequests = 50
)

// Oversell check: fire concurrent single-unit sales at one product and
// verify that exactly initialStock of them succeed and stock lands on zero.
func main() {
	ctx := context.Background()

	store := storage.NewMemoryStore()
	if err := store.SaveProduct(domain.Product{
		ID: productID, Name: "Stress Widget", PriceCents: 999,
	}); err != nil {
		panic(err)
	}
	if err := store.Track(ctx, domain.InventoryRecord{
		ProductID: productID, Quantity: initialStock, MinimumStock: 2, MaximumStock: 100,
	}); err != nil {
		panic(err)
	}

	sales := service.NewSaleService(store, store, store,
		service.NewUUIDReceiptGenerator(), event.NewNopPublisher(), zap.NewNop())

	var successCount atomic.Int32
	var soldOutCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := sales.CreateSale(ctx, domain.SaleRequest{
				CustomerName: fmt.Sprintf("customer-%d", n),
				Items: []domain.SaleRequestItem{
					{Ref: domain.ProductRef{ProductID: productID}, Quantity: 1},
				},
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				fmt.Printf("unexpected error: %v\n", err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && soldOut == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d sales succeeded, %d rejected\n", initialStock, soldOut)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, soldOut)
	}

	rec, err := store.ByProduct(ctx, productID)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Final Stock: %d\n", rec.Quantity)

	if rec.Quantity == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", rec.Quantity)
	}
}
