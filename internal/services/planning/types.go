package planning

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/services/recipes"
)

// CreateTemplateInput contains data for creating a weekly template.
type CreateTemplateInput struct {
	Name              string
	Description       string
	Days              map[models.Weekday]map[models.MealType][]string
	DefaultChildCount int
	CreatedBy         string
}

// UpdateTemplateInput replaces a template's descriptive fields and every slot.
type UpdateTemplateInput struct {
	Name              string
	Description       string
	Days              map[models.Weekday]map[models.MealType][]string
	DefaultChildCount int
	IsActive          bool
}

// DayIssue is a date the expansion could not plan.
type DayIssue struct {
	Date time.Time
	Err  error
}

// DayShortage lists the products one planned day needs beyond current stock.
type DayShortage struct {
	Date     time.Time
	Products []*recipes.Requirement
}

// ProductShortage is one product's shortfall summed over every short day of a period.
type ProductShortage struct {
	ProductID   string
	ProductName string
	Unit        string
	Required    decimal.Decimal
	Available   decimal.Decimal
	Shortage    decimal.Decimal
	Days        int
}

// ApplyResult reports what an expansion planned, skipped and forecast.
type ApplyResult struct {
	TemplateID   string
	Start        time.Time
	NumDays      int
	ChildCount   int
	Created      []*models.DailyMenu
	Skipped      []time.Time
	Issues       []DayIssue
	DayShortages []DayShortage
	Shortages    []ProductShortage
	Notified     bool
	NotifyError  error
}

// HasShortages reports whether any planned day needs more than current stock.
func (r *ApplyResult) HasShortages() bool {
	return len(r.Shortages) > 0
}

// Forecast is the read-only demand of a template over a number of days.
type Forecast struct {
	TemplateID      string
	Days            int
	ChildCount      int
	Products        []*recipes.Requirement
	MissingProducts []recipes.MissingProduct
	MissingDishes   []string
}

// Shortages returns the products stock cannot cover.
func (f *Forecast) Shortages() []*recipes.Requirement {
	var short []*recipes.Requirement
	for _, p := range f.Products {
		if !p.Sufficient() {
			short = append(short, p)
		}
	}
	return short
}
