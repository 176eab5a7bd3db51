// Package inventory is the stock ledger: the only place product quantities change.
package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunnyside/kitchen/internal/database"
	"github.com/sunnyside/kitchen/internal/metrics"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/repository"
	"github.com/sunnyside/kitchen/internal/util"
)

// Options configures a Ledger. Zero values fall back to defaults.
type Options struct {
	Logger        *slog.Logger
	Clock         util.Clock
	Metrics       *metrics.Metrics
	RetryAttempts int
}

// Ledger owns product stock. Every write is a compare-and-swap on the product version.
type Ledger struct {
	transactor  *database.Transactor
	products    *repository.ProductRepository
	purchases   *repository.PurchaseRepository
	idGenerator *util.IDGenerator
	logger      *slog.Logger
	clock       util.Clock
	metrics     *metrics.Metrics
	attempts    int
}

// NewLedger creates a new inventory ledger.
func NewLedger(db *sql.DB, opts Options) *Ledger {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = util.SystemClock{}
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = util.DefaultRetryAttempts
	}
	return &Ledger{
		transactor:  database.NewTransactor(db),
		products:    repository.NewProductRepository(db),
		purchases:   repository.NewPurchaseRepository(db),
		idGenerator: util.NewIDGenerator(),
		logger:      opts.Logger,
		clock:       opts.Clock,
		metrics:     opts.Metrics,
		attempts:    opts.RetryAttempts,
	}
}

// ============================================================================
// STOCK
// ============================================================================

// Decrease subtracts qty from a product's stock.
// It fails with *models.InsufficientStockError when stock is below qty.
//
// With a nil tx the ledger runs its own transaction and retries version conflicts.
// Inside a caller's tx a conflict is returned as models.ErrStockConflict for the caller to retry.
func (l *Ledger) Decrease(ctx context.Context, tx *sql.Tx, productID string, qty decimal.Decimal) (*models.Product, error) {
	if !qty.IsPositive() {
		return nil, models.NewValidationError("quantity", "must be positive")
	}
	return l.adjust(ctx, tx, productID, qty.Neg())
}

// Increase adds qty to a product's stock. Transaction handling matches Decrease.
func (l *Ledger) Increase(ctx context.Context, tx *sql.Tx, productID string, qty decimal.Decimal) (*models.Product, error) {
	if !qty.IsPositive() {
		return nil, models.NewValidationError("quantity", "must be positive")
	}
	return l.adjust(ctx, tx, productID, qty)
}

func (l *Ledger) adjust(ctx context.Context, tx *sql.Tx, productID string, delta decimal.Decimal) (*models.Product, error) {
	if tx != nil {
		return l.apply(ctx, tx, productID, delta)
	}

	var product *models.Product
	err := util.Retry(ctx, l.attempts, models.ErrStockConflict, func() error {
		return l.transactor.WithTransaction(ctx, func(tx *sql.Tx) error {
			p, err := l.apply(ctx, tx, productID, delta)
			if err != nil {
				return err
			}
			product = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (l *Ledger) apply(ctx context.Context, tx *sql.Tx, productID string, delta decimal.Decimal) (*models.Product, error) {
	p, err := l.products.GetByID(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	next := p.StockQuantity.Add(delta)
	if next.IsNegative() {
		return nil, &models.InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Unit:        p.Unit,
			Required:    delta.Neg(),
			Available:   p.StockQuantity,
		}
	}

	if err := l.products.CompareAndSetStock(ctx, tx, p.ID, next, p.Version); err != nil {
		return nil, err
	}

	previous := p.StockQuantity
	p.StockQuantity = next
	p.Version++

	if delta.IsNegative() {
		l.metrics.StockDecreased()
	} else {
		l.metrics.StockIncreased()
	}
	l.logger.DebugContext(ctx, "stock adjusted",
		"product_id", p.ID, "previous", previous.String(), "delta", delta.String(), "stock", next.String())

	return p, nil
}

// ============================================================================
// PRODUCTS
// ============================================================================

// CreateProduct registers a product with its opening stock.
func (l *Ledger) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	p := &models.Product{
		ID:             l.idGenerator.NewID(),
		Name:           strings.TrimSpace(input.Name),
		Category:       input.Category,
		Unit:           input.Unit,
		StockQuantity:  input.InitialStock,
		MinStockLevel:  input.MinStockLevel,
		MaxStockLevel:  input.MaxStockLevel,
		PricePerUnit:   input.PricePerUnit,
		ExpirationDate: input.ExpirationDate,
		BatchNumber:    input.BatchNumber,
		Status:         models.ProductStatusActive,
		Version:        1,
	}
	if input.InitialStock.IsNegative() {
		return nil, models.NewValidationError("initial_stock", "cannot be negative")
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := l.products.Create(ctx, nil, p); err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	l.logger.InfoContext(ctx, "product created", "product_id", p.ID, "name", p.Name, "stock", p.StockQuantity.String())
	return p, nil
}

// UpdateProduct rewrites descriptive fields. Stock changes go through Decrease, Increase or RecordPurchase.
func (l *Ledger) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*models.Product, error) {
	p, err := l.products.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(input.Name)
	p.Category = input.Category
	p.Unit = input.Unit
	p.MinStockLevel = input.MinStockLevel
	p.MaxStockLevel = input.MaxStockLevel
	p.PricePerUnit = input.PricePerUnit
	p.ExpirationDate = input.ExpirationDate
	p.BatchNumber = input.BatchNumber
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := l.products.Update(ctx, nil, p); err != nil {
		return nil, fmt.Errorf("updating product: %w", err)
	}
	return p, nil
}

func validateProduct(p *models.Product) error {
	if p.Name == "" {
		return models.NewValidationError("name", "is required")
	}
	if p.Unit == "" {
		return models.NewValidationError("unit", "is required")
	}
	if p.MinStockLevel.IsNegative() {
		return models.NewValidationError("min_stock_level", "cannot be negative")
	}
	if !p.MaxStockLevel.IsZero() && p.MaxStockLevel.LessThan(p.MinStockLevel) {
		return models.NewValidationError("max_stock_level", "must not be below min_stock_level")
	}
	if p.PricePerUnit.IsNegative() {
		return models.NewValidationError("price_per_unit", "cannot be negative")
	}
	return nil
}

// SetStatus moves a product through its soft lifecycle. Products are never deleted.
func (l *Ledger) SetStatus(ctx context.Context, id string, status models.ProductStatus) (*models.Product, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("status", "must be active, inactive or discontinued")
	}
	p, err := l.products.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	p.Status = status
	if err := l.products.Update(ctx, nil, p); err != nil {
		return nil, fmt.Errorf("updating product status: %w", err)
	}
	l.logger.InfoContext(ctx, "product status changed", "product_id", id, "status", string(status))
	return p, nil
}

// GetProduct retrieves a product by ID.
func (l *Ledger) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return l.products.GetByID(ctx, nil, id)
}

// GetProductByName retrieves a product by name.
func (l *Ledger) GetProductByName(ctx context.Context, name string) (*models.Product, error) {
	return l.products.GetByName(ctx, nil, name)
}

// GetProducts loads products in one batch, inside tx when one is given.
func (l *Ledger) GetProducts(ctx context.Context, tx *sql.Tx, ids []string) (map[string]*models.Product, error) {
	return l.products.GetByIDs(ctx, tx, ids)
}

// ListProducts lists products with filtering and pagination.
func (l *Ledger) ListProducts(ctx context.Context, filter models.ProductFilter, page models.Pagination) (*models.ProductList, error) {
	return l.products.List(ctx, filter, page)
}

// LowStock returns active products below their minimum level.
func (l *Ledger) LowStock(ctx context.Context) ([]*models.Product, error) {
	return l.products.LowStock(ctx)
}

// ExpiringWithin returns active products expiring in the next days days.
func (l *Ledger) ExpiringWithin(ctx context.Context, days int) ([]*models.Product, error) {
	if days < 0 {
		return nil, models.NewValidationError("days", "cannot be negative")
	}
	now := l.clock.Now()
	return l.products.ExpiringBetween(ctx, now, now.AddDate(0, 0, days))
}

// Expired returns active products already past their expiration date.
func (l *Ledger) Expired(ctx context.Context) ([]*models.Product, error) {
	return l.products.ExpiredAt(ctx, l.clock.Now())
}

// ============================================================================
// PURCHASES
// ============================================================================

// RecordPurchase increases stock and stores the receipt in one transaction.
func (l *Ledger) RecordPurchase(ctx context.Context, input RecordPurchaseInput) (*models.PurchaseRecord, error) {
	if !input.Quantity.IsPositive() {
		return nil, models.NewValidationError("quantity", "must be positive")
	}
	if input.PricePerUnit.IsNegative() {
		return nil, models.NewValidationError("price_per_unit", "cannot be negative")
	}
	purchasedAt := input.PurchasedAt
	if purchasedAt.IsZero() {
		purchasedAt = l.clock.Now()
	}

	rec := &models.PurchaseRecord{
		ID:           l.idGenerator.NewID(),
		ProductID:    input.ProductID,
		Quantity:     input.Quantity,
		PricePerUnit: input.PricePerUnit,
		Supplier:     input.Supplier,
		PurchasedAt:  purchasedAt,
	}

	err := util.Retry(ctx, l.attempts, models.ErrStockConflict, func() error {
		return l.transactor.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := l.apply(ctx, tx, input.ProductID, input.Quantity); err != nil {
				return err
			}
			return l.purchases.Create(ctx, tx, rec)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("recording purchase: %w", err)
	}

	l.logger.InfoContext(ctx, "purchase recorded",
		"product_id", rec.ProductID, "quantity", rec.Quantity.String(), "supplier", rec.Supplier)
	return rec, nil
}

// ListPurchases returns purchases in [start, end). An empty productID lists all products.
func (l *Ledger) ListPurchases(ctx context.Context, productID string, start, end time.Time) ([]*models.PurchaseRecord, error) {
	return l.purchases.ListByProduct(ctx, productID, start, end)
}
