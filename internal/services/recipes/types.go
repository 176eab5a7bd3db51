package recipes

import (
	"github.com/shopspring/decimal"

	"github.com/sunnyside/kitchen/internal/models"
)

// IngredientInput is one product reference in a dish.
type IngredientInput struct {
	ProductID          string
	QuantityPerServing decimal.Decimal
	Unit               string
}

// CreateDishInput contains data for creating a dish.
type CreateDishInput struct {
	Name          string
	Category      models.MealType
	Description   string
	Ingredients   []IngredientInput
	ServingsCount int
}

// UpdateDishInput replaces a dish's descriptive fields and ingredient list.
type UpdateDishInput struct {
	Name          string
	Category      models.MealType
	Description   string
	Ingredients   []IngredientInput
	ServingsCount int
	IsActive      bool
}
