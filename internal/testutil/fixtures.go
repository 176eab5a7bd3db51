package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sunnyside/kitchen/internal/models"
)

// Qty parses a decimal literal, panicking on malformed input.
func Qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// FixtureProduct creates a test product with sensible defaults.
func FixtureProduct(overrides ...func(*models.Product)) *models.Product {
	id := uuid.NewString()
	now := time.Now().UTC()

	product := &models.Product{
		ID:            id,
		Name:          "Product " + id[:8],
		Category:      "grain",
		Unit:          "kg",
		StockQuantity: decimal.NewFromInt(100),
		MinStockLevel: decimal.NewFromInt(10),
		MaxStockLevel: decimal.NewFromInt(200),
		PricePerUnit:  decimal.RequireFromString("2.50"),
		Status:        models.ProductStatusActive,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, override := range overrides {
		override(product)
	}

	return product
}

// FixtureExpiringProduct creates a product expiring in days.
func FixtureExpiringProduct(days int, overrides ...func(*models.Product)) *models.Product {
	return FixtureProduct(append([]func(*models.Product){
		func(p *models.Product) {
			exp := time.Now().UTC().AddDate(0, 0, days)
			p.ExpirationDate = &exp
			p.Category = "dairy"
		},
	}, overrides...)...)
}

// FixtureDish creates a dish using each product at qtyPerServing.
func FixtureDish(qtyPerServing string, products []*models.Product, overrides ...func(*models.Dish)) *models.Dish {
	id := uuid.NewString()
	now := time.Now().UTC()

	dish := &models.Dish{
		ID:            id,
		Name:          "Dish " + id[:8],
		Category:      models.MealLunch,
		ServingsCount: 1,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, p := range products {
		dish.Ingredients = append(dish.Ingredients, models.Ingredient{
			ProductID:          p.ID,
			QuantityPerServing: decimal.RequireFromString(qtyPerServing),
			Unit:               p.Unit,
		})
	}

	for _, override := range overrides {
		override(dish)
	}

	return dish
}

// FixtureMenu creates an unserved menu for date with the given dishes per slot.
func FixtureMenu(date time.Time, meals map[models.MealType][]string, overrides ...func(*models.DailyMenu)) *models.DailyMenu {
	menu := models.NewDailyMenu(uuid.NewString(), models.DateOnly(date))
	menu.TotalChildCount = 20
	menu.CreatedBy = "cook"
	for mt, dishIDs := range meals {
		menu.Meal(mt).DishIDs = dishIDs
	}
	now := time.Now().UTC()
	menu.CreatedAt = now
	menu.UpdatedAt = now

	for _, override := range overrides {
		override(menu)
	}

	return menu
}

// FixtureTemplate creates an active template with no slots.
func FixtureTemplate(overrides ...func(*models.WeeklyMenuTemplate)) *models.WeeklyMenuTemplate {
	id := uuid.NewString()
	now := time.Now().UTC()

	tmpl := &models.WeeklyMenuTemplate{
		ID:                id,
		Name:              "Week " + id[:8],
		Days:              make(map[models.Weekday]map[models.MealType][]string),
		DefaultChildCount: 20,
		IsActive:          true,
		CreatedBy:         "manager",
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	for _, override := range overrides {
		override(tmpl)
	}

	return tmpl
}

// Monday returns a known Monday, 2024-01-01 UTC.
func Monday() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}
