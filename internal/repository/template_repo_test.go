package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/testutil"
)

func TestTemplateRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTemplateRepository(db.DB)
	ctx := context.Background()

	tmpl := testutil.FixtureTemplate(func(w *models.WeeklyMenuTemplate) {
		w.Name = "Autumn"
		w.SetDishes(models.Monday, models.MealBreakfast, []string{"porridge", "fruit"})
		w.SetDishes(models.Sunday, models.MealLunch, []string{"soup"})
	})

	t.Run("create and load slots in order", func(t *testing.T) {
		if err := repo.Create(ctx, nil, tmpl); err != nil {
			t.Fatalf("failed to create template: %v", err)
		}
		found, err := repo.GetByID(ctx, nil, tmpl.ID)
		if err != nil {
			t.Fatalf("failed to get template: %v", err)
		}
		got := found.DishIDsFor(models.Monday, models.MealBreakfast)
		if len(got) != 2 || got[0] != "porridge" || got[1] != "fruit" {
			t.Errorf("unexpected monday breakfast %v", got)
		}
		if got := found.DishIDsFor(models.Sunday, models.MealLunch); len(got) != 1 {
			t.Errorf("expected sunday lunch, got %v", got)
		}
		if found.DefaultChildCount != 20 {
			t.Errorf("expected default child count 20, got %d", found.DefaultChildCount)
		}
	})

	t.Run("update replaces slots", func(t *testing.T) {
		tmpl.Days = nil
		tmpl.SetDishes(models.Friday, models.MealSnack, []string{"cookies"})
		if err := repo.Update(ctx, nil, tmpl); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		found, err := repo.GetByID(ctx, nil, tmpl.ID)
		if err != nil {
			t.Fatalf("failed to get template: %v", err)
		}
		if ids := found.AllDishIDs(); len(ids) != 1 || ids[0] != "cookies" {
			t.Errorf("expected only cookies, got %v", ids)
		}
	})

	t.Run("list active only", func(t *testing.T) {
		other := testutil.FixtureTemplate(func(w *models.WeeklyMenuTemplate) { w.Name = "Winter" })
		if err := repo.Create(ctx, nil, other); err != nil {
			t.Fatalf("failed to create template: %v", err)
		}
		if err := repo.SetActive(ctx, nil, other.ID, false); err != nil {
			t.Fatalf("SetActive failed: %v", err)
		}

		all, err := repo.List(ctx, false)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		active, err := repo.List(ctx, true)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 2 || len(active) != 1 {
			t.Errorf("expected 2 total and 1 active, got %d and %d", len(all), len(active))
		}
		if all[0].Name != "Autumn" {
			t.Errorf("expected name ordering, got %s first", all[0].Name)
		}
	})

	t.Run("delete cascades slots", func(t *testing.T) {
		if err := repo.Delete(ctx, nil, tmpl.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		db.AssertRowCount(t, "template_slots", 0)
		if _, err := repo.GetByID(ctx, nil, tmpl.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
