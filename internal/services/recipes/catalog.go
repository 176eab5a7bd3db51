// Package recipes manages dishes and turns them into per-product demand.
package recipes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/repository"
	"github.com/sunnyside/kitchen/internal/util"
)

// Catalog provides dish management and lookup.
type Catalog struct {
	db          *sql.DB
	dishes      *repository.DishRepository
	products    *repository.ProductRepository
	idGenerator *util.IDGenerator
	logger      *slog.Logger
}

// NewCatalog creates a new recipe catalog. A nil logger uses slog.Default().
func NewCatalog(db *sql.DB, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		db:          db,
		dishes:      repository.NewDishRepository(db),
		products:    repository.NewProductRepository(db),
		idGenerator: util.NewIDGenerator(),
		logger:      logger,
	}
}

// CreateDish validates and stores a new dish. Every ingredient must reference an existing product.
func (c *Catalog) CreateDish(ctx context.Context, input CreateDishInput) (*models.Dish, error) {
	dish := &models.Dish{
		ID:            c.idGenerator.NewID(),
		Name:          strings.TrimSpace(input.Name),
		Category:      input.Category,
		Description:   input.Description,
		ServingsCount: input.ServingsCount,
		IsActive:      true,
	}
	if dish.ServingsCount == 0 {
		dish.ServingsCount = 1
	}

	if err := c.prepare(ctx, dish, input.Ingredients); err != nil {
		return nil, err
	}
	if err := c.dishes.Create(ctx, nil, dish); err != nil {
		return nil, fmt.Errorf("creating dish: %w", err)
	}

	c.logger.InfoContext(ctx, "dish created", "dish_id", dish.ID, "name", dish.Name, "ingredients", len(dish.Ingredients))
	return dish, nil
}

// UpdateDish rewrites a dish and its ingredient list.
func (c *Catalog) UpdateDish(ctx context.Context, id string, input UpdateDishInput) (*models.Dish, error) {
	dish, err := c.dishes.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	dish.Name = strings.TrimSpace(input.Name)
	dish.Category = input.Category
	dish.Description = input.Description
	dish.IsActive = input.IsActive
	if input.ServingsCount > 0 {
		dish.ServingsCount = input.ServingsCount
	}

	if err := c.prepare(ctx, dish, input.Ingredients); err != nil {
		return nil, err
	}
	if err := c.dishes.Update(ctx, nil, dish); err != nil {
		return nil, fmt.Errorf("updating dish: %w", err)
	}
	return dish, nil
}

// prepare validates dish fields and resolves ingredients onto it.
func (c *Catalog) prepare(ctx context.Context, dish *models.Dish, ingredients []IngredientInput) error {
	if dish.Name == "" {
		return models.NewValidationError("name", "is required")
	}
	if !dish.Category.Valid() {
		return models.NewValidationError("category", "must be one of breakfast, lunch, dinner, snack")
	}
	if dish.ServingsCount < 1 {
		return models.NewValidationError("servings_count", "must be at least 1")
	}
	if len(ingredients) == 0 {
		return models.NewValidationError("ingredients", "at least one ingredient is required")
	}

	ids := make([]string, len(ingredients))
	for i, ing := range ingredients {
		if !ing.QuantityPerServing.IsPositive() {
			return models.NewValidationError("ingredients", fmt.Sprintf("ingredient %d: quantity per serving must be positive", i+1))
		}
		ids[i] = ing.ProductID
	}

	products, err := c.products.GetByIDs(ctx, nil, ids)
	if err != nil {
		return fmt.Errorf("resolving ingredients: %w", err)
	}

	dish.Ingredients = make([]models.Ingredient, len(ingredients))
	for i, ing := range ingredients {
		p, ok := products[ing.ProductID]
		if !ok {
			return models.NotFoundError("product", ing.ProductID)
		}
		unit := ing.Unit
		if unit == "" {
			unit = p.Unit
		}
		dish.Ingredients[i] = models.Ingredient{
			ProductID:          ing.ProductID,
			QuantityPerServing: ing.QuantityPerServing,
			Unit:               unit,
			Product:            p,
		}
	}
	return nil
}

// GetDish retrieves a dish with its ingredients resolved.
func (c *Catalog) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	return c.dishes.GetByID(ctx, nil, id)
}

// GetDishByName retrieves a dish by name.
func (c *Catalog) GetDishByName(ctx context.Context, name string) (*models.Dish, error) {
	return c.dishes.GetByName(ctx, nil, name)
}

// GetDishes resolves dishes in one batch, inside tx when one is given.
// Unknown IDs are absent from the result.
func (c *Catalog) GetDishes(ctx context.Context, tx *sql.Tx, ids []string) (map[string]*models.Dish, error) {
	dishes, err := c.dishes.GetByIDs(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving dishes: %w", err)
	}
	return dishes, nil
}

// ListDishes lists dishes, optionally of one category and only active ones.
func (c *Catalog) ListDishes(ctx context.Context, category models.MealType, activeOnly bool) ([]*models.Dish, error) {
	if category != "" && !category.Valid() {
		return nil, models.NewValidationError("category", "must be one of breakfast, lunch, dinner, snack")
	}
	return c.dishes.List(ctx, category, activeOnly)
}

// SetActive enables or retires a dish.
func (c *Catalog) SetActive(ctx context.Context, id string, active bool) error {
	return c.dishes.SetActive(ctx, nil, id, active)
}
