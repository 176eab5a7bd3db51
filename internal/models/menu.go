package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage and display format for menu dates.
const DateLayout = "2006-01-02"

// ServedState records a completed serving. A Meal with nil Served is unserved.
type ServedState struct {
	At         time.Time
	ChildCount int
	LogIDs     []string
}

// Meal is one slot of a daily menu.
type Meal struct {
	Type    MealType
	DishIDs []string
	Served  *ServedState
}

// IsServed reports whether the slot has been served.
func (m *Meal) IsServed() bool {
	return m.Served != nil
}

// ConsumptionLog is one product deduction caused by serving a meal.
type ConsumptionLog struct {
	ID          string
	MenuID      string
	MealType    MealType
	ProductID   string
	ProductName string
	Quantity    decimal.Decimal
	Unit        string
	ConsumedAt  time.Time
}

// DailyMenu is the plan and serving record for one calendar date.
type DailyMenu struct {
	ID              string
	Date            time.Time // midnight UTC of the calendar date
	Meals           map[MealType]*Meal
	TotalChildCount int
	ConsumptionLogs []ConsumptionLog
	Notes           string
	CreatedBy       string
	TemplateID      *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewDailyMenu returns a menu with all four slots present and unserved.
func NewDailyMenu(id string, date time.Time) *DailyMenu {
	m := &DailyMenu{
		ID:    id,
		Date:  date,
		Meals: make(map[MealType]*Meal, len(MealTypes)),
	}
	for _, mt := range MealTypes {
		m.Meals[mt] = &Meal{Type: mt}
	}
	return m
}

// DateKey returns the menu date in DateLayout.
func (m *DailyMenu) DateKey() string {
	return m.Date.Format(DateLayout)
}

// Meal returns the slot for mt, creating it if the menu was built without it.
func (m *DailyMenu) Meal(mt MealType) *Meal {
	if m.Meals == nil {
		m.Meals = make(map[MealType]*Meal, len(MealTypes))
	}
	meal, ok := m.Meals[mt]
	if !ok {
		meal = &Meal{Type: mt}
		m.Meals[mt] = meal
	}
	return meal
}

// AnyServed reports whether at least one slot is served.
func (m *DailyMenu) AnyServed() bool {
	for _, meal := range m.Meals {
		if meal.IsServed() {
			return true
		}
	}
	return false
}

// LogsFor returns the consumption logs owned by slot mt.
func (m *DailyMenu) LogsFor(mt MealType) []ConsumptionLog {
	var logs []ConsumptionLog
	for _, l := range m.ConsumptionLogs {
		if l.MealType == mt {
			logs = append(logs, l)
		}
	}
	return logs
}

// MarkServed moves slot mt to Served and appends its logs.
func (m *DailyMenu) MarkServed(mt MealType, at time.Time, childCount int, logs []ConsumptionLog) error {
	meal := m.Meal(mt)
	if meal.IsServed() {
		return ErrAlreadyServed
	}
	ids := make([]string, len(logs))
	for i, l := range logs {
		ids[i] = l.ID
	}
	meal.Served = &ServedState{At: at, ChildCount: childCount, LogIDs: ids}
	m.ConsumptionLogs = append(m.ConsumptionLogs, logs...)
	return nil
}

// MarkUnserved moves slot mt back to Unserved and removes its logs, returning them.
func (m *DailyMenu) MarkUnserved(mt MealType) ([]ConsumptionLog, error) {
	meal := m.Meal(mt)
	if !meal.IsServed() {
		return nil, ErrNotServed
	}
	removed := m.LogsFor(mt)
	kept := m.ConsumptionLogs[:0]
	for _, l := range m.ConsumptionLogs {
		if l.MealType != mt {
			kept = append(kept, l)
		}
	}
	m.ConsumptionLogs = kept
	meal.Served = nil
	return removed, nil
}

// AllDishIDs returns the distinct dish references across all slots in serving order.
func (m *DailyMenu) AllDishIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, mt := range MealTypes {
		meal, ok := m.Meals[mt]
		if !ok {
			continue
		}
		for _, id := range meal.DishIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// DateOnly truncates t to midnight UTC of its calendar date in t's own location.
func DateOnly(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a DateLayout string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, NewValidationError("date", "must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

// ConsumptionEntry is a consumption log joined with its menu date and product pricing.
type ConsumptionEntry struct {
	ConsumptionLog
	MenuDate     time.Time
	Category     string
	PricePerUnit decimal.Decimal
}

// Cost is quantity times the product's current price per unit.
func (e ConsumptionEntry) Cost() decimal.Decimal {
	return e.Quantity.Mul(e.PricePerUnit)
}
