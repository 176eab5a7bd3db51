package models

import (
	"fmt"
	"time"
)

// Weekday is a Monday-first day index: Monday=0 through Sunday=6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func (w Weekday) String() string {
	if w < Monday || w > Sunday {
		return fmt.Sprintf("weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// ParseWeekday parses a lowercase English day name.
func ParseWeekday(s string) (Weekday, error) {
	for i, name := range weekdayNames {
		if name == s {
			return Weekday(i), nil
		}
	}
	return 0, NewValidationError("weekday", fmt.Sprintf("unknown day %q", s))
}

// WeekdayOf maps a calendar date onto the Monday-first index. Sunday becomes 6.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// CycleWeekday returns the bucket for the i-th day of a Monday-aligned cycle.
func CycleWeekday(i int) Weekday {
	return Weekday(((i % 7) + 7) % 7)
}

// WeeklyMenuTemplate is a reusable week of meal plans.
type WeeklyMenuTemplate struct {
	ID                string
	Name              string
	Description       string
	Days              map[Weekday]map[MealType][]string
	DefaultChildCount int
	IsActive          bool
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DishIDsFor returns the dishes planned for day and meal.
func (t *WeeklyMenuTemplate) DishIDsFor(day Weekday, mt MealType) []string {
	meals, ok := t.Days[day]
	if !ok {
		return nil
	}
	return meals[mt]
}

// AllDishIDs returns every distinct dish referenced by the template.
func (t *WeeklyMenuTemplate) AllDishIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for day := Monday; day <= Sunday; day++ {
		for _, mt := range MealTypes {
			for _, id := range t.DishIDsFor(day, mt) {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

// SetDishes replaces the dishes for day and meal.
func (t *WeeklyMenuTemplate) SetDishes(day Weekday, mt MealType, dishIDs []string) {
	if t.Days == nil {
		t.Days = make(map[Weekday]map[MealType][]string)
	}
	if t.Days[day] == nil {
		t.Days[day] = make(map[MealType][]string)
	}
	t.Days[day][mt] = dishIDs
}
