package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/retail-pos/internal/core/domain"
)

// PostgresLedger implements the InventoryLedger port on PostgreSQL using
// row-level locks: ReserveAndDecrement runs SELECT ... FOR UPDATE inside a
// transaction, so concurrent requests on the same product serialize on the
// row and the check-and-subtract is indivisible.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

const inventoryColumns = `id, product_id, quantity, minimum_stock, maximum_stock,
	COALESCE(last_restocked_at, 'epoch'::timestamptz), location, version, created_at, updated_at`

func (p *PostgresLedger) ByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+inventoryColumns+` FROM inventory WHERE product_id = $1`, productID)
	return scanInventoryRow(row, productID)
}

func scanInventoryRow(row pgx.Row, productID string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := row.Scan(&rec.ID, &rec.ProductID, &rec.Quantity, &rec.MinimumStock,
		&rec.MaximumStock, &rec.LastRestockedAt, &rec.Location, &rec.Version,
		&rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", domain.ErrInventoryNotFound, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &rec, nil
}

func (p *PostgresLedger) ReserveAndDecrement(ctx context.Context, productID string, quantity int) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var available int
	err = tx.QueryRow(ctx,
		`SELECT quantity FROM inventory WHERE product_id = $1 FOR UPDATE`, productID,
	).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: product %s", domain.ErrInventoryNotFound, productID)
	}
	if err != nil {
		return 0, fmt.Errorf("lock inventory row: %w", err)
	}

	if available < quantity {
		return 0, &domain.InsufficientStockError{
			ProductID: productID,
			Available: available,
			Requested: quantity,
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE inventory
		SET quantity = quantity - $1, version = version + 1, updated_at = NOW()
		WHERE product_id = $2`,
		quantity, productID,
	)
	if err != nil {
		return 0, fmt.Errorf("decrement inventory: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit decrement: %w", err)
	}
	return available - quantity, nil
}

func (p *PostgresLedger) Restore(ctx context.Context, productID string, quantity int) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE inventory
		SET quantity = quantity + $1, version = version + 1, updated_at = NOW()
		WHERE product_id = $2`,
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("restore inventory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %s", domain.ErrInventoryNotFound, productID)
	}
	return nil
}

func (p *PostgresLedger) Restock(ctx context.Context, productID string, quantity int) (*domain.InventoryRecord, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE inventory
		SET quantity = quantity + $1, last_restocked_at = NOW(),
			version = version + 1, updated_at = NOW()
		WHERE product_id = $2
		RETURNING `+inventoryColumns,
		quantity, productID,
	)
	return scanInventoryRow(row, productID)
}

func (p *PostgresLedger) Track(ctx context.Context, record domain.InventoryRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO inventory (id, product_id, quantity, minimum_stock, maximum_stock,
			location, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, NOW(), NOW())`,
		record.ID, record.ProductID, record.Quantity,
		record.MinimumStock, record.MaximumStock, record.Location,
	)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

func (p *PostgresLedger) LowStock(ctx context.Context) ([]domain.InventoryRecord, error) {
	return p.queryInventory(ctx,
		`SELECT `+inventoryColumns+` FROM inventory WHERE quantity <= minimum_stock ORDER BY product_id`)
}

func (p *PostgresLedger) ByLocation(ctx context.Context, location string) ([]domain.InventoryRecord, error) {
	return p.queryInventory(ctx,
		`SELECT `+inventoryColumns+` FROM inventory WHERE location = $1 ORDER BY product_id`, location)
}

func (p *PostgresLedger) queryInventory(ctx context.Context, query string, args ...any) ([]domain.InventoryRecord, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var records []domain.InventoryRecord
	for rows.Next() {
		var rec domain.InventoryRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Quantity, &rec.MinimumStock,
			&rec.MaximumStock, &rec.LastRestockedAt, &rec.Location, &rec.Version,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
