package domain

import "time"

// InventoryRecord tracks on-hand stock for exactly one product.
// Quantity is never negative; MinimumStock and MaximumStock are
// informational thresholds for restock reporting, not hard limits.
type InventoryRecord struct {
	ID              string
	ProductID       string
	Quantity        int
	MinimumStock    int
	MaximumStock    int
	LastRestockedAt time.Time
	Location        string
	Version         int // optimistic locking
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsLow reports whether the record is at or below its minimum threshold.
func (r InventoryRecord) IsLow() bool {
	return r.Quantity <= r.MinimumStock
}
