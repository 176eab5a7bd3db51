package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sunnyside/kitchen/internal/models"
)

const dishColumns = `id, name, category, description, servings_count, is_active, created_at, updated_at`

// DishRepository handles recipe persistence.
type DishRepository struct {
	db *sql.DB
}

// NewDishRepository creates a new dish repository.
func NewDishRepository(db *sql.DB) *DishRepository {
	return &DishRepository{db: db}
}

// Create inserts a dish and its ingredients. Pass a tx to keep both in one transaction.
func (r *DishRepository) Create(ctx context.Context, tx *sql.Tx, d *models.Dish) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	q := conn(r.db, tx)
	_, err := q.ExecContext(ctx, `INSERT INTO dishes (`+dishColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, string(d.Category), d.Description, d.ServingsCount,
		boolToInt(d.IsActive), formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("name", fmt.Sprintf("dish %q already exists", d.Name))
		}
		return fmt.Errorf("inserting dish: %w", err)
	}

	return insertIngredients(ctx, q, d)
}

// Update rewrites a dish and replaces its ingredient list.
func (r *DishRepository) Update(ctx context.Context, tx *sql.Tx, d *models.Dish) error {
	d.UpdatedAt = time.Now().UTC()

	q := conn(r.db, tx)
	res, err := q.ExecContext(ctx, `
		UPDATE dishes SET name = ?, category = ?, description = ?, servings_count = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		d.Name, string(d.Category), d.Description, d.ServingsCount, boolToInt(d.IsActive), formatTime(d.UpdatedAt), d.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("name", fmt.Sprintf("dish %q already exists", d.Name))
		}
		return fmt.Errorf("updating dish: %w", err)
	}
	if err := expectOneRow(res, "dish", d.ID); err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM dish_ingredients WHERE dish_id = ?`, d.ID); err != nil {
		return fmt.Errorf("clearing ingredients: %w", err)
	}
	return insertIngredients(ctx, q, d)
}

func insertIngredients(ctx context.Context, q dbtx, d *models.Dish) error {
	for i, ing := range d.Ingredients {
		_, err := q.ExecContext(ctx, `
			INSERT INTO dish_ingredients (dish_id, position, product_id, quantity_per_serving, unit)
			VALUES (?, ?, ?, ?, ?)`,
			d.ID, i, ing.ProductID, ing.QuantityPerServing.String(), ing.Unit,
		)
		if err != nil {
			return fmt.Errorf("inserting ingredient %d of dish %s: %w", i, d.ID, err)
		}
	}
	return nil
}

// GetByID retrieves a dish with its ingredients and their products resolved.
func (r *DishRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.Dish, error) {
	dishes, err := r.GetByIDs(ctx, tx, []string{id})
	if err != nil {
		return nil, err
	}
	d, ok := dishes[id]
	if !ok {
		return nil, models.NotFoundError("dish", id)
	}
	return d, nil
}

// GetByName retrieves a dish by its unique name.
func (r *DishRepository) GetByName(ctx context.Context, tx *sql.Tx, name string) (*models.Dish, error) {
	var id string
	err := conn(r.db, tx).QueryRowContext(ctx, `SELECT id FROM dishes WHERE name = ?`, name).Scan(&id)
	if err != nil {
		return nil, notFound(err, "dish", name)
	}
	return r.GetByID(ctx, tx, id)
}

// GetByIDs loads dishes in two queries, keyed by ID. Unknown IDs are absent from the map.
// Ingredients whose product no longer exists keep a nil Product.
func (r *DishRepository) GetByIDs(ctx context.Context, tx *sql.Tx, ids []string) (map[string]*models.Dish, error) {
	ids = uniqueIDs(ids)
	result := make(map[string]*models.Dish, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	q := conn(r.db, tx)
	dishes, err := queryDishes(ctx, q, `SELECT `+dishColumns+` FROM dishes WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	for _, d := range dishes {
		result[d.ID] = d
	}

	if err := loadIngredients(ctx, q, result); err != nil {
		return nil, err
	}
	return result, nil
}

// List returns dishes ordered by category then name. An empty category lists all.
func (r *DishRepository) List(ctx context.Context, category models.MealType, activeOnly bool) ([]*models.Dish, error) {
	query := `SELECT ` + dishColumns + ` FROM dishes WHERE 1 = 1`
	var args []any
	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY category, name`

	dishes, err := queryDishes(ctx, r.db, query, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Dish, len(dishes))
	for _, d := range dishes {
		byID[d.ID] = d
	}
	if err := loadIngredients(ctx, r.db, byID); err != nil {
		return nil, err
	}
	return dishes, nil
}

// SetActive toggles a dish without touching its ingredients.
func (r *DishRepository) SetActive(ctx context.Context, tx *sql.Tx, id string, active bool) error {
	res, err := conn(r.db, tx).ExecContext(ctx, `UPDATE dishes SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating dish: %w", err)
	}
	return expectOneRow(res, "dish", id)
}

func queryDishes(ctx context.Context, q dbtx, query string, args ...any) ([]*models.Dish, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying dishes: %w", err)
	}
	defer rows.Close()

	var dishes []*models.Dish
	for rows.Next() {
		var d models.Dish
		var category, createdStr, updatedStr string
		var active int
		if err := rows.Scan(&d.ID, &d.Name, &category, &d.Description, &d.ServingsCount, &active, &createdStr, &updatedStr); err != nil {
			return nil, fmt.Errorf("scanning dish row: %w", err)
		}
		d.Category = models.MealType(category)
		d.IsActive = active == 1
		d.CreatedAt = parseTime(createdStr)
		d.UpdatedAt = parseTime(updatedStr)
		dishes = append(dishes, &d)
	}
	return dishes, rows.Err()
}

// loadIngredients fills Ingredients for every dish in byID with a LEFT JOIN onto products.
func loadIngredients(ctx context.Context, q dbtx, byID map[string]*models.Dish) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT i.dish_id, i.product_id, i.quantity_per_serving, i.unit,
			p.id, p.name, p.category, p.unit, p.stock_quantity, p.min_stock_level, p.max_stock_level,
			p.price_per_unit, p.expiration_date, p.batch_number, p.status, p.version, p.created_at, p.updated_at
		FROM dish_ingredients i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.dish_id IN (`+placeholders(len(ids))+`)
		ORDER BY i.dish_id, i.position`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("querying ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dishID, qty string
		var ing models.Ingredient
		var pid, pname, pcat, punit, pstock, pmin, pmax, pprice, pexp, pbatch, pstatus, pcreated, pupdated sql.NullString
		var pversion sql.NullInt64

		if err := rows.Scan(&dishID, &ing.ProductID, &qty, &ing.Unit,
			&pid, &pname, &pcat, &punit, &pstock, &pmin, &pmax,
			&pprice, &pexp, &pbatch, &pstatus, &pversion, &pcreated, &pupdated); err != nil {
			return fmt.Errorf("scanning ingredient row: %w", err)
		}

		if err := decodeDecimals(decimalField{qty, &ing.QuantityPerServing}); err != nil {
			return fmt.Errorf("dish %s ingredient %s: %w", dishID, ing.ProductID, err)
		}

		if pid.Valid {
			p := &models.Product{
				ID:             pid.String,
				Name:           pname.String,
				Category:       pcat.String,
				Unit:           punit.String,
				ExpirationDate: timePtr(pexp),
				BatchNumber:    stringPtr(pbatch),
				Status:         models.ProductStatus(pstatus.String),
				Version:        pversion.Int64,
				CreatedAt:      parseTime(pcreated.String),
				UpdatedAt:      parseTime(pupdated.String),
			}
			if err := decodeDecimals(
				decimalField{pstock.String, &p.StockQuantity},
				decimalField{pmin.String, &p.MinStockLevel},
				decimalField{pmax.String, &p.MaxStockLevel},
				decimalField{pprice.String, &p.PricePerUnit},
			); err != nil {
				return fmt.Errorf("product %s: %w", p.ID, err)
			}
			ing.Product = p
		}

		if d, ok := byID[dishID]; ok {
			d.Ingredients = append(d.Ingredients, ing)
		}
	}
	return rows.Err()
}
