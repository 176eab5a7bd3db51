package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunnyside/kitchen/internal/models"
)

const productColumns = `id, name, category, unit, stock_quantity, min_stock_level, max_stock_level,
	price_per_unit, expiration_date, batch_number, status, version, created_at, updated_at`

// ProductRepository handles product and stock persistence.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, tx *sql.Tx, p *models.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Version == 0 {
		p.Version = 1
	}
	if p.Status == "" {
		p.Status = models.ProductStatusActive
	}

	_, err := conn(r.db, tx).ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Category, p.Unit,
		p.StockQuantity.String(), p.MinStockLevel.String(), p.MaxStockLevel.String(), p.PricePerUnit.String(),
		nullableTime(p.ExpirationDate), nullableString(p.BatchNumber),
		string(p.Status), p.Version, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("name", fmt.Sprintf("product %q already exists", p.Name))
		}
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.Product, error) {
	row := conn(r.db, tx).QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

// GetByName retrieves a product by its unique name.
func (r *ProductRepository) GetByName(ctx context.Context, tx *sql.Tx, name string) (*models.Product, error) {
	row := conn(r.db, tx).QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE name = ?`, name)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err, "product", name)
	}
	return p, nil
}

// GetByIDs retrieves products in one query, keyed by ID. Unknown IDs are absent from the map.
func (r *ProductRepository) GetByIDs(ctx context.Context, tx *sql.Tx, ids []string) (map[string]*models.Product, error) {
	ids = uniqueIDs(ids)
	result := make(map[string]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id IN (` + placeholders(len(ids)) + `)`
	products, err := r.query(ctx, tx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

// Update writes descriptive fields. Stock quantity and version are untouched.
func (r *ProductRepository) Update(ctx context.Context, tx *sql.Tx, p *models.Product) error {
	p.UpdatedAt = time.Now().UTC()

	res, err := conn(r.db, tx).ExecContext(ctx, `
		UPDATE products SET
			name = ?, category = ?, unit = ?, min_stock_level = ?, max_stock_level = ?,
			price_per_unit = ?, expiration_date = ?, batch_number = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Category, p.Unit, p.MinStockLevel.String(), p.MaxStockLevel.String(),
		p.PricePerUnit.String(), nullableTime(p.ExpirationDate), nullableString(p.BatchNumber),
		string(p.Status), formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("name", fmt.Sprintf("product %q already exists", p.Name))
		}
		return fmt.Errorf("updating product: %w", err)
	}
	return expectOneRow(res, "product", p.ID)
}

// CompareAndSetStock writes qty only if the stored version still equals expectedVersion.
// A lost race returns models.ErrStockConflict.
func (r *ProductRepository) CompareAndSetStock(ctx context.Context, tx *sql.Tx, id string, qty decimal.Decimal, expectedVersion int64) error {
	res, err := conn(r.db, tx).ExecContext(ctx, `
		UPDATE products SET stock_quantity = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		qty.String(), formatTime(time.Now()), id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating stock: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking stock update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("product %s at version %d: %w", id, expectedVersion, models.ErrStockConflict)
	}
	return nil
}

// List retrieves products with filtering and pagination, ordered by name.
func (r *ProductRepository) List(ctx context.Context, filter models.ProductFilter, page models.Pagination) (*models.ProductList, error) {
	var conditions []string
	var args []any

	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Search != "" {
		conditions = append(conditions, "name LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY name LIMIT ? OFFSET ?`, productColumns, where)
	products, err := r.query(ctx, nil, query, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		return nil, err
	}

	return &models.ProductList{
		Products:   products,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.Limit(),
		TotalPages: page.TotalPages(total),
	}, nil
}

// ListActive returns every active product ordered by name.
func (r *ProductRepository) ListActive(ctx context.Context) ([]*models.Product, error) {
	return r.query(ctx, nil, `SELECT `+productColumns+` FROM products WHERE status = ? ORDER BY name`,
		string(models.ProductStatusActive))
}

// LowStock returns active products whose stock is below their minimum level.
func (r *ProductRepository) LowStock(ctx context.Context) ([]*models.Product, error) {
	active, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	// Decimal text does not compare numerically in SQL
	var low []*models.Product
	for _, p := range active {
		if p.IsLowStock() {
			low = append(low, p)
		}
	}
	return low, nil
}

// ExpiringBetween returns active products with an expiration date in (from, to], soonest first.
func (r *ProductRepository) ExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Product, error) {
	return r.query(ctx, nil, `
		SELECT `+productColumns+` FROM products
		WHERE status = ? AND expiration_date IS NOT NULL AND expiration_date > ? AND expiration_date <= ?
		ORDER BY expiration_date, name`,
		string(models.ProductStatusActive), formatTime(from), formatTime(to))
}

// ExpiredAt returns active products whose expiration date is before now, oldest first.
func (r *ProductRepository) ExpiredAt(ctx context.Context, now time.Time) ([]*models.Product, error) {
	return r.query(ctx, nil, `
		SELECT `+productColumns+` FROM products
		WHERE status = ? AND expiration_date IS NOT NULL AND expiration_date < ?
		ORDER BY expiration_date, name`,
		string(models.ProductStatusActive), formatTime(now))
}

func (r *ProductRepository) query(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]*models.Product, error) {
	rows, err := conn(r.db, tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var stock, minLevel, maxLevel, price, status, createdStr, updatedStr string
	var expiration, batch sql.NullString

	err := row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Unit, &stock, &minLevel, &maxLevel,
		&price, &expiration, &batch, &status, &p.Version, &createdStr, &updatedStr,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeDecimals(
		decimalField{stock, &p.StockQuantity},
		decimalField{minLevel, &p.MinStockLevel},
		decimalField{maxLevel, &p.MaxStockLevel},
		decimalField{price, &p.PricePerUnit},
	); err != nil {
		return nil, fmt.Errorf("product %s: %w", p.ID, err)
	}

	p.Status = models.ProductStatus(status)
	p.ExpirationDate = timePtr(expiration)
	p.BatchNumber = stringPtr(batch)
	p.CreatedAt = parseTime(createdStr)
	p.UpdatedAt = parseTime(updatedStr)
	return &p, nil
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking %s update: %w", kind, err)
	}
	if n == 0 {
		return models.NotFoundError(kind, id)
	}
	return nil
}
