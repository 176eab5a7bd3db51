package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sunnyside/kitchen/internal/models"
)

// ConsumptionRepository reads consumption logs for reporting.
type ConsumptionRepository struct {
	db *sql.DB
}

// NewConsumptionRepository creates a new consumption repository.
func NewConsumptionRepository(db *sql.DB) *ConsumptionRepository {
	return &ConsumptionRepository{db: db}
}

// Between returns entries whose menu date lies in [start, end], ordered by date then meal.
// An empty productID returns every product.
func (r *ConsumptionRepository) Between(ctx context.Context, productID string, start, end time.Time) ([]models.ConsumptionEntry, error) {
	query := `
		SELECT l.id, l.menu_id, l.meal_type, l.product_id, l.product_name, l.quantity, l.unit, l.consumed_at,
			m.menu_date, COALESCE(p.category, ''), COALESCE(p.price_per_unit, '0')
		FROM consumption_logs l
		JOIN daily_menus m ON m.id = l.menu_id
		LEFT JOIN products p ON p.id = l.product_id
		WHERE m.menu_date >= ? AND m.menu_date <= ?`
	args := []any{models.DateOnly(start).Format(models.DateLayout), models.DateOnly(end).Format(models.DateLayout)}
	if productID != "" {
		query += ` AND l.product_id = ?`
		args = append(args, productID)
	}
	query += ` ORDER BY m.menu_date, l.consumed_at, l.product_name, l.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying consumption: %w", err)
	}
	defer rows.Close()

	var entries []models.ConsumptionEntry
	for rows.Next() {
		var e models.ConsumptionEntry
		var mt, qty, consumedStr, dateStr, price string
		if err := rows.Scan(&e.ID, &e.MenuID, &mt, &e.ProductID, &e.ProductName, &qty, &e.Unit, &consumedStr,
			&dateStr, &e.Category, &price); err != nil {
			return nil, fmt.Errorf("scanning consumption row: %w", err)
		}
		if err := decodeDecimals(decimalField{qty, &e.Quantity}, decimalField{price, &e.PricePerUnit}); err != nil {
			return nil, fmt.Errorf("consumption log %s: %w", e.ID, err)
		}
		date, err := time.Parse(models.DateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("consumption log %s date: %w", e.ID, err)
		}
		e.MealType = models.MealType(mt)
		e.ConsumedAt = parseTime(consumedStr)
		e.MenuDate = date
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
