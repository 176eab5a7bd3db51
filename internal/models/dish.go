package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MealType identifies one of the four daily meal slots.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealTypes lists the slots in serving order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

func (m MealType) String() string {
	return string(m)
}

// Valid reports whether m is one of the four slots.
func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

// ParseMealType parses a slot name.
func ParseMealType(s string) (MealType, error) {
	m := MealType(s)
	if !m.Valid() {
		return "", NewValidationError("meal_type", "must be one of breakfast, lunch, dinner, snack")
	}
	return m, nil
}

// Ingredient is one product reference within a dish, quantified per single serving.
type Ingredient struct {
	ProductID          string
	QuantityPerServing decimal.Decimal
	Unit               string

	// Joined, nil when the product no longer resolves
	Product *Product
}

// Dish is a recipe.
type Dish struct {
	ID            string
	Name          string
	Category      MealType
	Description   string
	Ingredients   []Ingredient
	ServingsCount int // informational, scaling always multiplies per-serving quantities by headcount
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductIDs returns the distinct product references in ingredient order.
func (d *Dish) ProductIDs() []string {
	seen := make(map[string]bool, len(d.Ingredients))
	ids := make([]string, 0, len(d.Ingredients))
	for _, ing := range d.Ingredients {
		if seen[ing.ProductID] {
			continue
		}
		seen[ing.ProductID] = true
		ids = append(ids, ing.ProductID)
	}
	return ids
}
