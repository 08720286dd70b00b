package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/retail-pos/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/retailpos?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func seedMySQL(t *testing.T, db *sql.DB, adapter *MySQLAdapter, productID string, stock int) {
	t.Helper()
	ctx := context.Background()

	if err := adapter.SaveProduct(ctx, domain.Product{
		ID: productID, Name: "Test " + productID, PriceCents: 1000,
	}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO inventory (id, product_id, quantity, minimum_stock, maximum_stock, location, version)
		VALUES (?, ?, ?, 2, 100, 'aisle-1', 0)
		ON DUPLICATE KEY UPDATE quantity = ?, version = 0`,
		uuid.New().String(), productID, stock, stock)
	if err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
}

func TestMySQLReserveAndDecrement(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	seedMySQL(t, db, adapter, "mysql-test-item", 10)

	remaining, err := adapter.ReserveAndDecrement(context.Background(), "mysql-test-item", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remaining != 7 {
		t.Errorf("expected remaining 7, got %d", remaining)
	}
}

func TestMySQLReserveAndDecrement_Insufficient(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	seedMySQL(t, db, adapter, "mysql-test-item", 5)

	_, err := adapter.ReserveAndDecrement(context.Background(), "mysql-test-item", 10)
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stockErr.Available != 5 || stockErr.Requested != 10 {
		t.Errorf("unexpected fields: %+v", stockErr)
	}

	rec, err := adapter.ByProduct(context.Background(), "mysql-test-item")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if rec.Quantity != 5 {
		t.Errorf("expected stock unchanged at 5, got %d", rec.Quantity)
	}
}

func TestMySQLReserveAndDecrement_NotTracked(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)

	_, err := adapter.ReserveAndDecrement(context.Background(), "mysql-missing-item", 1)
	if !errors.Is(err, domain.ErrInventoryNotFound) {
		t.Errorf("expected ErrInventoryNotFound, got: %v", err)
	}
}

func TestMySQLRestore(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	seedMySQL(t, db, adapter, "mysql-test-item", 10)
	ctx := context.Background()

	if _, err := adapter.ReserveAndDecrement(ctx, "mysql-test-item", 4); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if err := adapter.Restore(ctx, "mysql-test-item", 4); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	rec, _ := adapter.ByProduct(ctx, "mysql-test-item")
	if rec.Quantity != 10 {
		t.Errorf("expected stock back to 10, got %d", rec.Quantity)
	}
}

func TestMySQLConcurrentDecrement(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)

	initialStock := 20
	totalRequests := 50
	seedMySQL(t, db, adapter, "mysql-concurrent-item", initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := adapter.ReserveAndDecrement(context.Background(), "mysql-concurrent-item", 1); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	rec, _ := adapter.ByProduct(context.Background(), "mysql-concurrent-item")
	if rec.Quantity != 0 {
		t.Errorf("expected stock 0, got %d", rec.Quantity)
	}
}

func TestMySQLRestockStampsTime(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	seedMySQL(t, db, adapter, "mysql-restock-item", 5)

	rec, err := adapter.Restock(context.Background(), "mysql-restock-item", 10)
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

func TestMySQLSaleRoundTrip(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	saleID := uuid.New().String()
	receiptID := fmt.Sprintf("REC-%08d", time.Now().UnixNano()%100000000)

	sale := &domain.SaleTransaction{
		ID:           saleID,
		ReceiptID:    receiptID,
		CustomerName: "mysql-test-customer",
		CashierName:  "mysql-test-cashier",
		Lines: []domain.SaleLine{
			{ProductID: "mysql-test-item", ProductName: "Widget", Quantity: 2,
				UnitPriceCents: 1000, SubtotalCents: 2000},
			{ProductID: "mysql-test-item-2", ProductName: "Gadget", Quantity: 1,
				UnitPriceCents: 500, DiscountCents: 100, SubtotalCents: 400},
		},
		TotalCents: 2400,
		CreatedAt:  time.Now().Truncate(time.Second),
	}

	if err := adapter.Create(ctx, sale); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	exists, err := adapter.ReceiptExists(ctx, receiptID)
	if err != nil || !exists {
		t.Fatalf("expected receipt to exist, got %v, %v", exists, err)
	}

	got, err := adapter.ByID(ctx, saleID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected sale")
	}
	if len(got.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got.Lines))
	}
	if got.Lines[0].ProductName != "Widget" || got.Lines[1].SubtotalCents != 400 {
		t.Errorf("unexpected lines: %+v", got.Lines)
	}
	if got.TotalCents != 2400 {
		t.Errorf("expected total 2400, got %d", got.TotalCents)
	}

	byCustomer, err := adapter.ByCustomer(ctx, "mysql-test-customer")
	if err != nil {
		t.Fatalf("customer query failed: %v", err)
	}
	if len(byCustomer) == 0 {
		t.Error("expected at least one sale for customer")
	}
}
