package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/services/inventory"
	"github.com/sunnyside/kitchen/internal/services/planning"
	"github.com/sunnyside/kitchen/internal/services/recipes"
	"github.com/sunnyside/kitchen/internal/util"
)

// ProductStore creates and finds products.
type ProductStore interface {
	GetProductByName(ctx context.Context, name string) (*models.Product, error)
	CreateProduct(ctx context.Context, input inventory.CreateProductInput) (*models.Product, error)
}

// DishStore creates and finds dishes.
type DishStore interface {
	GetDishByName(ctx context.Context, name string) (*models.Dish, error)
	CreateDish(ctx context.Context, input recipes.CreateDishInput) (*models.Dish, error)
}

// TemplateStore creates and lists weekly templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context, activeOnly bool) ([]*models.WeeklyMenuTemplate, error)
	CreateTemplate(ctx context.Context, input planning.CreateTemplateInput) (*models.WeeklyMenuTemplate, error)
}

// Result counts what an import created and what already existed.
type Result struct {
	ProductsCreated  int
	ProductsSkipped  int
	DishesCreated    int
	DishesSkipped    int
	TemplatesCreated int
	TemplatesSkipped int
}

// Importer writes a catalog through the services. Entries that already exist by name are left untouched.
type Importer struct {
	products  ProductStore
	dishes    DishStore
	templates TemplateStore
	clock     util.Clock
	logger    *slog.Logger
}

// NewImporter creates a new catalog importer.
func NewImporter(products ProductStore, dishes DishStore, templates TemplateStore, clock util.Clock, logger *slog.Logger) *Importer {
	if clock == nil {
		clock = util.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		products:  products,
		dishes:    dishes,
		templates: templates,
		clock:     clock,
		logger:    logger,
	}
}

// Import creates products, then dishes, then templates.
func (im *Importer) Import(ctx context.Context, c *Catalog) (*Result, error) {
	im.logger.InfoContext(ctx, "starting catalog import",
		"products", len(c.Products), "dishes", len(c.Dishes), "templates", len(c.Templates))

	res := &Result{}
	productIDs, err := im.importProducts(ctx, c.Products, res)
	if err != nil {
		return res, fmt.Errorf("importing products: %w", err)
	}
	dishIDs, err := im.importDishes(ctx, c.Dishes, productIDs, res)
	if err != nil {
		return res, fmt.Errorf("importing dishes: %w", err)
	}
	if err := im.importTemplates(ctx, c.Templates, dishIDs, res); err != nil {
		return res, fmt.Errorf("importing templates: %w", err)
	}

	im.logger.InfoContext(ctx, "catalog import complete",
		"products_created", res.ProductsCreated, "dishes_created", res.DishesCreated,
		"templates_created", res.TemplatesCreated)
	return res, nil
}

func (im *Importer) importProducts(ctx context.Context, specs []ProductSpec, res *Result) (map[string]string, error) {
	ids := make(map[string]string, len(specs))
	for _, spec := range specs {
		existing, err := im.products.GetProductByName(ctx, spec.Name)
		switch {
		case err == nil:
			ids[spec.Name] = existing.ID
			res.ProductsSkipped++
			continue
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}

		input := inventory.CreateProductInput{
			Name:           spec.Name,
			Category:       spec.Category,
			Unit:           spec.Unit,
			InitialStock:   spec.Stock.Decimal(),
			MinStockLevel:  spec.Min.Decimal(),
			MaxStockLevel:  spec.Max.Decimal(),
			PricePerUnit:   spec.Price.Decimal(),
			ExpirationDate: expiry(spec, im.clock.Now()),
		}
		if spec.Batch != "" {
			batch := spec.Batch
			input.BatchNumber = &batch
		}

		p, err := im.products.CreateProduct(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", spec.Name, err)
		}
		ids[spec.Name] = p.ID
		res.ProductsCreated++
	}
	return ids, nil
}

func (im *Importer) importDishes(ctx context.Context, specs []DishSpec, productIDs map[string]string, res *Result) (map[string]string, error) {
	ids := make(map[string]string, len(specs))
	for _, spec := range specs {
		existing, err := im.dishes.GetDishByName(ctx, spec.Name)
		switch {
		case err == nil:
			ids[spec.Name] = existing.ID
			res.DishesSkipped++
			continue
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}

		input := recipes.CreateDishInput{
			Name:          spec.Name,
			Category:      models.MealType(spec.Category),
			Description:   spec.Description,
			ServingsCount: spec.Servings,
		}
		for _, ing := range spec.Ingredients {
			input.Ingredients = append(input.Ingredients, recipes.IngredientInput{
				ProductID:          productIDs[ing.Product],
				QuantityPerServing: ing.Qty.Decimal(),
				Unit:               ing.Unit,
			})
		}

		d, err := im.dishes.CreateDish(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("dish %q: %w", spec.Name, err)
		}
		ids[spec.Name] = d.ID
		res.DishesCreated++
	}
	return ids, nil
}

func (im *Importer) importTemplates(ctx context.Context, specs []TemplateSpec, dishIDs map[string]string, res *Result) error {
	existing, err := im.templates.ListTemplates(ctx, false)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t.Name] = true
	}

	for _, spec := range specs {
		if have[spec.Name] {
			res.TemplatesSkipped++
			continue
		}

		days := make(map[models.Weekday]map[models.MealType][]string, len(spec.Days))
		for dayName, meals := range spec.Days {
			day, err := models.ParseWeekday(dayName)
			if err != nil {
				return fmt.Errorf("template %q: %w", spec.Name, err)
			}
			days[day] = make(map[models.MealType][]string, len(meals))
			for meal, names := range meals {
				for _, name := range names {
					days[day][models.MealType(meal)] = append(days[day][models.MealType(meal)], dishIDs[name])
				}
			}
		}

		createdBy := spec.CreatedBy
		if createdBy == "" {
			createdBy = "seed"
		}
		if _, err := im.templates.CreateTemplate(ctx, planning.CreateTemplateInput{
			Name:              spec.Name,
			Description:       spec.Description,
			Days:              days,
			DefaultChildCount: spec.DefaultChildCount,
			CreatedBy:         createdBy,
		}); err != nil {
			return fmt.Errorf("template %q: %w", spec.Name, err)
		}
		have[spec.Name] = true
		res.TemplatesCreated++
	}
	return nil
}

// expiry returns the expiration date a spec gets when imported at now.
func expiry(spec ProductSpec, now time.Time) *time.Time {
	if spec.ExpiresInDays <= 0 {
		return nil
	}
	exp := util.StartOfDay(now).AddDate(0, 0, spec.ExpiresInDays)
	return &exp
}
