package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/retail-pos/internal/core/domain"
)

// restockRetries bounds the optimistic-lock retry loop in Restock.
const restockRetries = 3

// MySQLAdapter implements the Catalog, InventoryLedger and SaleRepository
// ports on MySQL. Stock decrements use a conditional UPDATE guarded by
// `quantity >= ?`, so the check-and-subtract is a single atomic statement;
// Restock uses an optimistic version check with bounded retry.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(m.db.QueryRowContext(ctx, `
		SELECT id, name, description, price_cents, category, barcode
		FROM products WHERE id = ?`, id), "id "+id)
}

func (m *MySQLAdapter) ProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return scanProduct(m.db.QueryRowContext(ctx, `
		SELECT id, name, description, price_cents, category, barcode
		FROM products WHERE barcode = ?`, barcode), "barcode "+barcode)
}

func scanProduct(row *sql.Row, ref string) (*domain.Product, error) {
	var p domain.Product
	var description, category, barcode sql.NullString
	err := row.Scan(&p.ID, &p.Name, &description, &p.PriceCents, &category, &barcode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	p.Description = description.String
	p.Category = category.String
	p.Barcode = barcode.String
	return &p, nil
}

// ProductsByCategory lists catalog entries in a category. Off-port, for the
// surrounding CRUD layer.
func (m *MySQLAdapter) ProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, description, price_cents, category, barcode
		FROM products WHERE category = ? ORDER BY id`, category)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		var description, cat, barcode sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description, &p.PriceCents, &cat, &barcode); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Description = description.String
		p.Category = cat.String
		p.Barcode = barcode.String
		products = append(products, p)
	}
	return products, rows.Err()
}

// SaveProduct seeds the catalog. Off-port, used by cmd/server and tests.
func (m *MySQLAdapter) SaveProduct(ctx context.Context, p domain.Product) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price_cents, category, barcode)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), description = VALUES(description),
			price_cents = VALUES(price_cents), category = VALUES(category),
			barcode = VALUES(barcode)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Category, p.Barcode,
	)
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Track(ctx context.Context, record domain.InventoryRecord) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (id, product_id, quantity, minimum_stock, maximum_stock,
			location, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NOW(), NOW())`,
		record.ID, record.ProductID, record.Quantity,
		record.MinimumStock, record.MaximumStock, record.Location,
	)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	var restockedAt sql.NullTime
	err := m.db.QueryRowContext(ctx, `
		SELECT id, product_id, quantity, minimum_stock, maximum_stock,
			last_restocked_at, location, version, created_at, updated_at
		FROM inventory WHERE product_id = ?`, productID,
	).Scan(&rec.ID, &rec.ProductID, &rec.Quantity, &rec.MinimumStock, &rec.MaximumStock,
		&restockedAt, &rec.Location, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", domain.ErrInventoryNotFound, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	rec.LastRestockedAt = restockedAt.Time
	return &rec, nil
}

func (m *MySQLAdapter) ReserveAndDecrement(ctx context.Context, productID string, quantity int) (int, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity - ?, version = version + 1, updated_at = NOW()
		WHERE product_id = ? AND quantity >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return 0, fmt.Errorf("decrement inventory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Either the record is missing or stock did not cover the request.
		rec, err := m.ByProduct(ctx, productID)
		if err != nil {
			return 0, err
		}
		return 0, &domain.InsufficientStockError{
			ProductID: productID,
			Available: rec.Quantity,
			Requested: quantity,
		}
	}

	var remaining int
	err = m.db.QueryRowContext(ctx,
		`SELECT quantity FROM inventory WHERE product_id = ?`, productID,
	).Scan(&remaining)
	if err != nil {
		return 0, fmt.Errorf("query remaining quantity: %w", err)
	}
	return remaining, nil
}

func (m *MySQLAdapter) Restore(ctx context.Context, productID string, quantity int) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity + ?, version = version + 1, updated_at = NOW()
		WHERE product_id = ?`,
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("restore inventory: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: product %s", domain.ErrInventoryNotFound, productID)
	}
	return nil
}

func (m *MySQLAdapter) Restock(ctx context.Context, productID string, quantity int) (*domain.InventoryRecord, error) {
	for attempt := 0; attempt < restockRetries; attempt++ {
		rec, err := m.ByProduct(ctx, productID)
		if err != nil {
			return nil, err
		}

		result, err := m.db.ExecContext(ctx, `
			UPDATE inventory
			SET quantity = quantity + ?, last_restocked_at = NOW(),
				version = version + 1, updated_at = NOW()
			WHERE product_id = ? AND version = ?`,
			quantity, productID, rec.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("restock inventory: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 1 {
			return m.ByProduct(ctx, productID)
		}
	}
	return nil, fmt.Errorf("%w: restock of product %s", domain.ErrConcurrencyConflict, productID)
}

func (m *MySQLAdapter) LowStock(ctx context.Context) ([]domain.InventoryRecord, error) {
	return m.queryInventory(ctx, `
		SELECT id, product_id, quantity, minimum_stock, maximum_stock,
			last_restocked_at, location, version, created_at, updated_at
		FROM inventory WHERE quantity <= minimum_stock ORDER BY product_id`)
}

func (m *MySQLAdapter) ByLocation(ctx context.Context, location string) ([]domain.InventoryRecord, error) {
	return m.queryInventory(ctx, `
		SELECT id, product_id, quantity, minimum_stock, maximum_stock,
			last_restocked_at, location, version, created_at, updated_at
		FROM inventory WHERE location = ? ORDER BY product_id`, location)
}

func (m *MySQLAdapter) queryInventory(ctx context.Context, query string, args ...any) ([]domain.InventoryRecord, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var records []domain.InventoryRecord
	for rows.Next() {
		var rec domain.InventoryRecord
		var restockedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Quantity, &rec.MinimumStock,
			&rec.MaximumStock, &restockedAt, &rec.Location, &rec.Version,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		rec.LastRestockedAt = restockedAt.Time
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (m *MySQLAdapter) Create(ctx context.Context, sale *domain.SaleTransaction) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, receipt_id, customer_name, cashier_name,
			payment_method, total_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.ReceiptID, sale.CustomerName, sale.CashierName,
		sale.PaymentMethod, sale.TotalCents, sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for i, line := range sale.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, line_no, product_id, product_name,
				quantity, unit_price_cents, discount_cents, subtotal_cents)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sale.ID, i, line.ProductID, line.ProductName,
			line.Quantity, line.UnitPriceCents, line.DiscountCents, line.SubtotalCents,
		)
		if err != nil {
			return fmt.Errorf("insert sale line %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) ByID(ctx context.Context, id string) (*domain.SaleTransaction, error) {
	return m.querySale(ctx, `WHERE id = ?`, id)
}

func (m *MySQLAdapter) ByReceipt(ctx context.Context, receiptID string) (*domain.SaleTransaction, error) {
	return m.querySale(ctx, `WHERE receipt_id = ?`, receiptID)
}

func (m *MySQLAdapter) ReceiptExists(ctx context.Context, receiptID string) (bool, error) {
	var n int
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sales WHERE receipt_id = ?`, receiptID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query receipt: %w", err)
	}
	return n > 0, nil
}

func (m *MySQLAdapter) Between(ctx context.Context, from, to time.Time) ([]domain.SaleTransaction, error) {
	return m.querySales(ctx, `WHERE created_at BETWEEN ? AND ?`, from, to)
}

func (m *MySQLAdapter) ByCustomer(ctx context.Context, customerName string) ([]domain.SaleTransaction, error) {
	return m.querySales(ctx, `WHERE customer_name = ?`, customerName)
}

func (m *MySQLAdapter) ByCashier(ctx context.Context, cashierName string) ([]domain.SaleTransaction, error) {
	return m.querySales(ctx, `WHERE cashier_name = ?`, cashierName)
}

func (m *MySQLAdapter) querySale(ctx context.Context, where string, arg any) (*domain.SaleTransaction, error) {
	var sale domain.SaleTransaction
	err := m.db.QueryRowContext(ctx, `
		SELECT id, receipt_id, customer_name, cashier_name, payment_method,
			total_cents, created_at
		FROM sales `+where, arg,
	).Scan(&sale.ID, &sale.ReceiptID, &sale.CustomerName, &sale.CashierName,
		&sale.PaymentMethod, &sale.TotalCents, &sale.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query sale: %w", err)
	}

	if err := m.loadLines(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (m *MySQLAdapter) querySales(ctx context.Context, where string, args ...any) ([]domain.SaleTransaction, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, receipt_id, customer_name, cashier_name, payment_method,
			total_cents, created_at
		FROM sales `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.SaleTransaction
	for rows.Next() {
		var sale domain.SaleTransaction
		if err := rows.Scan(&sale.ID, &sale.ReceiptID, &sale.CustomerName,
			&sale.CashierName, &sale.PaymentMethod, &sale.TotalCents, &sale.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		if err := m.loadLines(ctx, &sales[i]); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

func (m *MySQLAdapter) loadLines(ctx context.Context, sale *domain.SaleTransaction) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, product_name, quantity, unit_price_cents,
			discount_cents, subtotal_cents
		FROM sale_lines WHERE sale_id = ? ORDER BY line_no`, sale.ID)
	if err != nil {
		return fmt.Errorf("query sale lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.SaleLine
		if err := rows.Scan(&line.ProductID, &line.ProductName, &line.Quantity,
			&line.UnitPriceCents, &line.DiscountCents, &line.SubtotalCents); err != nil {
			return fmt.Errorf("scan sale line: %w", err)
		}
		sale.Lines = append(sale.Lines, line)
	}
	return rows.Err()
}
