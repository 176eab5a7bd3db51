package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sunnyside/kitchen/internal/models"
)

// PurchaseRepository handles stock receipt records.
type PurchaseRepository struct {
	db *sql.DB
}

// NewPurchaseRepository creates a new purchase repository.
func NewPurchaseRepository(db *sql.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create inserts a purchase record.
func (r *PurchaseRepository) Create(ctx context.Context, tx *sql.Tx, rec *models.PurchaseRecord) error {
	rec.CreatedAt = time.Now().UTC()

	_, err := conn(r.db, tx).ExecContext(ctx, `
		INSERT INTO purchases (id, product_id, quantity, price_per_unit, supplier, purchased_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProductID, rec.Quantity.String(), rec.PricePerUnit.String(),
		rec.Supplier, formatTime(rec.PurchasedAt), formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting purchase: %w", err)
	}
	return nil
}

// ListByProduct returns purchases of productID with purchased_at in [start, end), oldest first.
// An empty productID lists every product.
func (r *PurchaseRepository) ListByProduct(ctx context.Context, productID string, start, end time.Time) ([]*models.PurchaseRecord, error) {
	query := `
		SELECT id, product_id, quantity, price_per_unit, supplier, purchased_at, created_at
		FROM purchases
		WHERE purchased_at >= ? AND purchased_at < ?`
	args := []any{formatTime(start), formatTime(end)}
	if productID != "" {
		query += ` AND product_id = ?`
		args = append(args, productID)
	}
	query += ` ORDER BY purchased_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying purchases: %w", err)
	}
	defer rows.Close()

	var records []*models.PurchaseRecord
	for rows.Next() {
		var rec models.PurchaseRecord
		var qty, price, purchasedStr, createdStr string
		if err := rows.Scan(&rec.ID, &rec.ProductID, &qty, &price, &rec.Supplier, &purchasedStr, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning purchase row: %w", err)
		}
		if err := decodeDecimals(decimalField{qty, &rec.Quantity}, decimalField{price, &rec.PricePerUnit}); err != nil {
			return nil, fmt.Errorf("purchase %s: %w", rec.ID, err)
		}
		rec.PurchasedAt = parseTime(purchasedStr)
		rec.CreatedAt = parseTime(createdStr)
		records = append(records, &rec)
	}
	return records, rows.Err()
}
