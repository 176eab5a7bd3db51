package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewDailyMenu_AllSlotsUnserved(t *testing.T) {
	m := NewDailyMenu("menu-1", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))

	if len(m.Meals) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(m.Meals))
	}
	for _, mt := range MealTypes {
		if m.Meal(mt).IsServed() {
			t.Errorf("slot %s should start unserved", mt)
		}
	}
	if m.DateKey() != "2024-03-04" {
		t.Errorf("DateKey() = %s, want 2024-03-04", m.DateKey())
	}
}

func TestDailyMenu_ServeCancelTransitions(t *testing.T) {
	m := NewDailyMenu("menu-1", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	at := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	lunchLogs := []ConsumptionLog{
		{ID: "log-1", MealType: MealLunch, ProductID: "p1", Quantity: decimal.NewFromInt(5)},
		{ID: "log-2", MealType: MealLunch, ProductID: "p2", Quantity: decimal.NewFromInt(2)},
	}
	snackLogs := []ConsumptionLog{
		{ID: "log-3", MealType: MealSnack, ProductID: "p1", Quantity: decimal.NewFromInt(1)},
	}

	t.Run("Serve moves slot to served with log ids", func(t *testing.T) {
		if err := m.MarkServed(MealLunch, at, 10, lunchLogs); err != nil {
			t.Fatalf("MarkServed: %v", err)
		}
		lunch := m.Meal(MealLunch)
		if !lunch.IsServed() {
			t.Fatal("lunch should be served")
		}
		if lunch.Served.ChildCount != 10 {
			t.Errorf("child count = %d, want 10", lunch.Served.ChildCount)
		}
		if len(lunch.Served.LogIDs) != 2 || lunch.Served.LogIDs[0] != "log-1" {
			t.Errorf("unexpected log ids %v", lunch.Served.LogIDs)
		}
		if !m.AnyServed() {
			t.Error("AnyServed() should be true")
		}
	})

	t.Run("Second serve is rejected", func(t *testing.T) {
		err := m.MarkServed(MealLunch, at, 10, nil)
		if !errors.Is(err, ErrAlreadyServed) {
			t.Errorf("expected ErrAlreadyServed, got %v", err)
		}
	})

	t.Run("Cancel removes only that slot's logs", func(t *testing.T) {
		if err := m.MarkServed(MealSnack, at, 10, snackLogs); err != nil {
			t.Fatalf("MarkServed snack: %v", err)
		}
		removed, err := m.MarkUnserved(MealLunch)
		if err != nil {
			t.Fatalf("MarkUnserved: %v", err)
		}
		if len(removed) != 2 {
			t.Errorf("removed %d logs, want 2", len(removed))
		}
		if len(m.ConsumptionLogs) != 1 || m.ConsumptionLogs[0].ID != "log-3" {
			t.Errorf("remaining logs = %+v", m.ConsumptionLogs)
		}
		if m.Meal(MealLunch).IsServed() {
			t.Error("lunch should be unserved")
		}
	})

	t.Run("Cancel of unserved slot is rejected", func(t *testing.T) {
		_, err := m.MarkUnserved(MealBreakfast)
		if !errors.Is(err, ErrNotServed) {
			t.Errorf("expected ErrNotServed, got %v", err)
		}
	})
}

func TestDailyMenu_AllDishIDs(t *testing.T) {
	m := NewDailyMenu("menu-1", time.Now())
	m.Meal(MealBreakfast).DishIDs = []string{"porridge", "fruit"}
	m.Meal(MealSnack).DishIDs = []string{"fruit", "yogurt"}

	got := m.AllDishIDs()
	want := []string{"porridge", "fruit", "yogurt"}
	if len(got) != len(want) {
		t.Fatalf("AllDishIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllDishIDs()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	in := time.Date(2024, 12, 31, 23, 30, 0, 0, loc)

	got := DateOnly(in)
	want := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOnly() = %v, want %v", got, want)
	}
}

func TestParseMealType(t *testing.T) {
	tests := []struct {
		in      string
		want    MealType
		wantErr bool
	}{
		{"breakfast", MealBreakfast, false},
		{"lunch", MealLunch, false},
		{"dinner", MealDinner, false},
		{"snack", MealSnack, false},
		{"brunch", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMealType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMealType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMealType(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
