package menus

import (
	"time"

	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/services/recipes"
)

// CreateMenuInput contains data for planning a daily menu.
type CreateMenuInput struct {
	Date            time.Time
	Meals           map[models.MealType][]string
	TotalChildCount int
	Notes           string
	CreatedBy       string
	TemplateID      *string
}

// UpdateMenuInput changes a menu. Nil fields are left alone; slots listed in Meals are replaced.
type UpdateMenuInput struct {
	Notes           *string
	TotalChildCount *int
	Meals           map[models.MealType][]string
}

// ServeResult is the outcome of serving one meal.
type ServeResult struct {
	Menu            *models.DailyMenu
	Logs            []models.ConsumptionLog
	MissingProducts []recipes.MissingProduct
}

// DailyConsumption is the projected demand of one day's menu.
type DailyConsumption struct {
	MenuID          string
	Date            time.Time
	ChildCount      int
	Products        []*recipes.Requirement
	MissingProducts []recipes.MissingProduct
	MissingDishes   []string
}

// Sufficient reports whether current stock covers every product.
func (d *DailyConsumption) Sufficient() bool {
	for _, p := range d.Products {
		if !p.Sufficient() {
			return false
		}
	}
	return true
}
