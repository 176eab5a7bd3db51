package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunnyside/kitchen/internal/models"
)

// ProductTotal is the consumption of one product over a period.
type ProductTotal struct {
	ProductID   string
	ProductName string
	Category    string
	Unit        string
	Quantity    decimal.Decimal
	Cost        decimal.Decimal
	Entries     int
}

// CategoryTotal is the cost of one product category over a period.
type CategoryTotal struct {
	Category string
	Cost     decimal.Decimal
	Products int
}

// MealTotal summarizes one meal type over a period.
type MealTotal struct {
	MealType models.MealType
	Served   int
	Children int
	Cost     decimal.Decimal
}

// PeriodSummary aggregates consumption logs for menus dated in [Start, End].
type PeriodSummary struct {
	Start       time.Time
	End         time.Time
	Products    []ProductTotal
	Categories  []CategoryTotal
	Meals       []MealTotal
	MealsServed int
	TotalCost   decimal.Decimal
}

// MealBreakdown is one slot of a day with everything it consumed.
type MealBreakdown struct {
	MealType models.MealType
	DishIDs  []string
	Served   *models.ServedState
	Entries  []models.ConsumptionEntry
	Cost     decimal.Decimal
}

// DayBreakdown is the consumption of a single menu date.
type DayBreakdown struct {
	Menu      *models.DailyMenu
	Meals     []MealBreakdown
	TotalCost decimal.Decimal
}

// ProductHistory joins a product's consumption with its purchases over a period.
type ProductHistory struct {
	Product       *models.Product
	Start         time.Time
	End           time.Time
	Consumption   []models.ConsumptionEntry
	Purchases     []*models.PurchaseRecord
	Consumed      decimal.Decimal
	Purchased     decimal.Decimal
	ConsumedCost  decimal.Decimal
	PurchasedCost decimal.Decimal
}

// NetChange is purchased minus consumed quantity over the period.
func (h *ProductHistory) NetChange() decimal.Decimal {
	return h.Purchased.Sub(h.Consumed)
}

// Dashboard is the kitchen's at-a-glance state.
type Dashboard struct {
	GeneratedAt time.Time
	WindowStart time.Time
	LowStock    []*models.Product
	Expiring    []*models.Product
	Expired     []*models.Product
	TopConsumed []ProductTotal
	TodaysMenu  *models.DailyMenu
	ServedToday int
	WindowCost  decimal.Decimal
}
