package seed

import (
	"context"
	"testing"
	"time"

	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/services/inventory"
	"github.com/sunnyside/kitchen/internal/services/menus"
	"github.com/sunnyside/kitchen/internal/services/planning"
	"github.com/sunnyside/kitchen/internal/services/recipes"
	"github.com/sunnyside/kitchen/internal/testutil"
	"github.com/sunnyside/kitchen/internal/util"
)

func TestImporter_DefaultCatalog(t *testing.T) {
	db := testutil.NewMigratedDB(t)
	ctx := context.Background()
	clock := util.NewFixedClock(testutil.Monday().Add(7 * time.Hour))

	ledger := inventory.NewLedger(db.DB, inventory.Options{Clock: clock})
	catalog := recipes.NewCatalog(db.DB, nil)
	menuSvc := menus.NewService(db.DB, ledger, catalog, menus.Options{Clock: clock})
	engine := planning.NewEngine(db.DB, menuSvc, catalog, nil, planning.Options{})
	importer := NewImporter(ledger, catalog, engine, clock, nil)

	c, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	res, err := importer.Import(ctx, c)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if res.ProductsCreated != len(c.Products) || res.DishesCreated != len(c.Dishes) || res.TemplatesCreated != len(c.Templates) {
		t.Errorf("unexpected result %+v", res)
	}
	db.AssertRowCount(t, "products", len(c.Products))
	db.AssertRowCount(t, "dishes", len(c.Dishes))
	db.AssertRowCount(t, "weekly_templates", len(c.Templates))

	t.Run("expiry relative to import time", func(t *testing.T) {
		fish, err := ledger.GetProductByName(ctx, "Fish")
		if err != nil {
			t.Fatalf("GetProductByName failed: %v", err)
		}
		want := testutil.Monday().AddDate(0, 0, 2)
		if fish.ExpirationDate == nil || !fish.ExpirationDate.Equal(want) {
			t.Errorf("expected expiry %s, got %v", want, fish.ExpirationDate)
		}
		rice, err := ledger.GetProductByName(ctx, "Rice")
		if err != nil {
			t.Fatalf("GetProductByName failed: %v", err)
		}
		if rice.ExpirationDate != nil {
			t.Errorf("rice should not expire, got %v", rice.ExpirationDate)
		}
	})

	t.Run("dish ingredients resolve by name", func(t *testing.T) {
		pancakes, err := catalog.GetDishByName(ctx, "Pancakes")
		if err != nil {
			t.Fatalf("GetDishByName failed: %v", err)
		}
		if len(pancakes.Ingredients) != 4 || pancakes.Ingredients[0].Product == nil || pancakes.Ingredients[0].Product.Name != "Flour" {
			t.Errorf("unexpected ingredients %+v", pancakes.Ingredients)
		}
		if pancakes.Ingredients[0].Unit != "kg" {
			t.Errorf("unit should default from the product, got %q", pancakes.Ingredients[0].Unit)
		}
	})

	t.Run("template is expandable", func(t *testing.T) {
		templates, err := engine.ListTemplates(ctx, true)
		if err != nil {
			t.Fatalf("ListTemplates failed: %v", err)
		}
		if len(templates) != 1 {
			t.Fatalf("expected 1 template, got %d", len(templates))
		}
		if got := templates[0].DishIDsFor(models.Friday, models.MealLunch); len(got) != 2 {
			t.Errorf("expected two friday lunch dishes, got %v", got)
		}

		result, err := engine.ApplyToWeek(ctx, templates[0].ID, testutil.Monday(), 0)
		if err != nil {
			t.Fatalf("ApplyToWeek failed: %v", err)
		}
		if len(result.Created) != 7 || len(result.Issues) != 0 {
			t.Errorf("expected 7 clean days, got %d created and %v", len(result.Created), result.Issues)
		}
	})

	t.Run("second import skips everything", func(t *testing.T) {
		again, err := importer.Import(ctx, c)
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if again.ProductsCreated+again.DishesCreated+again.TemplatesCreated != 0 {
			t.Errorf("expected nothing created, got %+v", again)
		}
		if again.ProductsSkipped != len(c.Products) || again.TemplatesSkipped != len(c.Templates) {
			t.Errorf("expected everything skipped, got %+v", again)
		}
		db.AssertRowCount(t, "products", len(c.Products))
	})
}
