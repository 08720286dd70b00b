package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/retail-pos/internal/core/domain"
)

// MemoryStore implements the Catalog, InventoryLedger and SaleRepository
// ports on plain maps behind one mutex. It backs tests and the dev
// configuration; the mutex makes ReserveAndDecrement a single atomic
// check-and-subtract.
type MemoryStore struct {
	mu        sync.Mutex
	products  map[string]domain.Product
	barcodes  map[string]string // barcode -> product id
	inventory map[string]domain.InventoryRecord
	sales     map[string]domain.SaleTransaction
	receipts  map[string]string // receipt id -> sale id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[string]domain.Product),
		barcodes:  make(map[string]string),
		inventory: make(map[string]domain.InventoryRecord),
		sales:     make(map[string]domain.SaleTransaction),
		receipts:  make(map[string]string),
	}
}

// SaveProduct seeds the catalog. Not part of any core port; the catalog is
// read-only from the core's point of view.
func (m *MemoryStore) SaveProduct(product domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if product.Barcode != "" {
		if existing, ok := m.barcodes[product.Barcode]; ok && existing != product.ID {
			return fmt.Errorf("barcode %s already used by product %s", product.Barcode, existing)
		}
		m.barcodes[product.Barcode] = product.ID
	}
	m.products[product.ID] = product
	return nil
}

// ProductsByCategory lists catalog entries in a category. Off-port, for the
// surrounding CRUD layer.
func (m *MemoryStore) ProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.Product
	for _, p := range m.products {
		if p.Category == category {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (m *MemoryStore) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", domain.ErrProductNotFound, id)
	}
	return &product, nil
}

func (m *MemoryStore) ProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.barcodes[barcode]
	if !ok {
		return nil, fmt.Errorf("%w: barcode %s", domain.ErrProductNotFound, barcode)
	}
	product := m.products[id]
	return &product, nil
}

func (m *MemoryStore) Track(ctx context.Context, record domain.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.inventory[record.ProductID]; ok {
		return fmt.Errorf("inventory record already exists for product %s", record.ProductID)
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	m.inventory[record.ProductID] = record
	return nil
}

func (m *MemoryStore) ByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.inventory[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", domain.ErrInventoryNotFound, productID)
	}
	return &record, nil
}

func (m *MemoryStore) ReserveAndDecrement(ctx context.Context, productID string, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.inventory[productID]
	if !ok {
		return 0, fmt.Errorf("%w: product %s", domain.ErrInventoryNotFound, productID)
	}
	if record.Quantity < quantity {
		return 0, &domain.InsufficientStockError{
			ProductID: productID,
			Available: record.Quantity,
			Requested: quantity,
		}
	}
	record.Quantity -= quantity
	record.Version++
	record.UpdatedAt = time.Now()
	m.inventory[productID] = record
	return record.Quantity, nil
}

func (m *MemoryStore) Restore(ctx context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.inventory[productID]
	if !ok {
		return fmt.Errorf("%w: product %s", domain.ErrInventoryNotFound, productID)
	}
	record.Quantity += quantity
	record.Version++
	record.UpdatedAt = time.Now()
	m.inventory[productID] = record
	return nil
}

func (m *MemoryStore) Restock(ctx context.Context, productID string, quantity int) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.inventory[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", domain.ErrInventoryNotFound, productID)
	}
	now := time.Now()
	record.Quantity += quantity
	record.LastRestockedAt = now
	record.Version++
	record.UpdatedAt = now
	m.inventory[productID] = record
	return &record, nil
}

func (m *MemoryStore) LowStock(ctx context.Context) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var low []domain.InventoryRecord
	for _, record := range m.inventory {
		if record.IsLow() {
			low = append(low, record)
		}
	}
	sort.Slice(low, func(i, j int) bool { return low[i].ProductID < low[j].ProductID })
	return low, nil
}

func (m *MemoryStore) ByLocation(ctx context.Context, location string) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.InventoryRecord
	for _, record := range m.inventory {
		if record.Location == location {
			matched = append(matched, record)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ProductID < matched[j].ProductID })
	return matched, nil
}

func (m *MemoryStore) Create(ctx context.Context, sale *domain.SaleTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.receipts[sale.ReceiptID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateReceipt, sale.ReceiptID)
	}
	m.sales[sale.ID] = *sale
	m.receipts[sale.ReceiptID] = sale.ID
	return nil
}

func (m *MemoryStore) ByID(ctx context.Context, id string) (*domain.SaleTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sale, ok := m.sales[id]
	if !ok {
		return nil, nil
	}
	return &sale, nil
}

func (m *MemoryStore) ByReceipt(ctx context.Context, receiptID string) (*domain.SaleTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.receipts[receiptID]
	if !ok {
		return nil, nil
	}
	sale := m.sales[id]
	return &sale, nil
}

func (m *MemoryStore) ReceiptExists(ctx context.Context, receiptID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.receipts[receiptID]
	return ok, nil
}

func (m *MemoryStore) Between(ctx context.Context, from, to time.Time) ([]domain.SaleTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.SaleTransaction
	for _, sale := range m.sales {
		if !sale.CreatedAt.Before(from) && !sale.CreatedAt.After(to) {
			matched = append(matched, sale)
		}
	}
	sortSalesNewestFirst(matched)
	return matched, nil
}

func (m *MemoryStore) ByCustomer(ctx context.Context, customerName string) ([]domain.SaleTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.SaleTransaction
	for _, sale := range m.sales {
		if sale.CustomerName == customerName {
			matched = append(matched, sale)
		}
	}
	sortSalesNewestFirst(matched)
	return matched, nil
}

func (m *MemoryStore) ByCashier(ctx context.Context, cashierName string) ([]domain.SaleTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.SaleTransaction
	for _, sale := range m.sales {
		if sale.CashierName == cashierName {
			matched = append(matched, sale)
		}
	}
	sortSalesNewestFirst(matched)
	return matched, nil
}

func sortSalesNewestFirst(sales []domain.SaleTransaction) {
	sort.Slice(sales, func(i, j int) bool {
		return sales[i].CreatedAt.After(sales[j].CreatedAt)
	})
}
