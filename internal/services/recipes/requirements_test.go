package recipes

import (
	"testing"

	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/testutil"
)

func resolved(d *models.Dish, products ...*models.Product) *models.Dish {
	for i := range d.Ingredients {
		for _, p := range products {
			if d.Ingredients[i].ProductID == p.ID {
				d.Ingredients[i].Product = p
			}
		}
	}
	return d
}

func TestRequirements_AddDish(t *testing.T) {
	t.Run("scales by child count", func(t *testing.T) {
		flour := testutil.FixtureProduct(func(p *models.Product) {
			p.Name = "Flour"
			p.StockQuantity = testutil.Qty("40")
		})
		dish := resolved(testutil.FixtureDish("10", []*models.Product{flour}), flour)

		reqs := NewRequirements()
		reqs.AddDish(dish, 5, models.MealBreakfast)

		req, ok := reqs.Get(flour.ID)
		if !ok {
			t.Fatal("expected flour requirement")
		}
		if !req.Required.Equal(testutil.Qty("50")) {
			t.Errorf("expected required 50, got %s", req.Required)
		}
		if !req.Available.Equal(testutil.Qty("40")) {
			t.Errorf("expected available 40, got %s", req.Available)
		}
		if !req.Shortage().Equal(testutil.Qty("10")) {
			t.Errorf("expected shortage 10, got %s", req.Shortage())
		}
		if req.Sufficient() {
			t.Error("expected insufficient")
		}
		if len(reqs.Shortages()) != 1 {
			t.Errorf("expected 1 shortage, got %d", len(reqs.Shortages()))
		}
	})

	t.Run("merges repeated products across dishes", func(t *testing.T) {
		p := testutil.FixtureProduct()
		a := resolved(testutil.FixtureDish("3", []*models.Product{p}), p)
		b := resolved(testutil.FixtureDish("2", []*models.Product{p}), p)

		reqs := NewRequirements()
		reqs.AddDish(a, 4, models.MealLunch)
		reqs.AddDish(b, 4, models.MealLunch)

		if reqs.Len() != 1 {
			t.Fatalf("expected one merged product, got %d", reqs.Len())
		}
		req := reqs.Items()[0]
		if !req.Required.Equal(testutil.Qty("20")) {
			t.Errorf("expected (3+2)x4 = 20, got %s", req.Required)
		}
		if len(req.MealTypes) != 1 {
			t.Errorf("expected meal type recorded once, got %v", req.MealTypes)
		}
		if !req.Sufficient() || !req.Shortage().IsZero() {
			t.Errorf("100 in stock should cover 20")
		}
	})

	t.Run("tracks contributing meal types and order", func(t *testing.T) {
		milk := testutil.FixtureProduct(func(p *models.Product) { p.Name = "Milk" })
		oats := testutil.FixtureProduct(func(p *models.Product) { p.Name = "Oats" })
		porridge := resolved(testutil.FixtureDish("0.2", []*models.Product{oats, milk}), oats, milk)
		shake := resolved(testutil.FixtureDish("0.3", []*models.Product{milk}), milk)

		reqs := NewRequirements()
		reqs.AddDish(porridge, 10, models.MealBreakfast)
		reqs.AddDish(shake, 10, models.MealSnack)

		items := reqs.Items()
		if len(items) != 2 || items[0].ProductName != "Oats" || items[1].ProductName != "Milk" {
			t.Fatalf("unexpected order %v", items)
		}
		if !items[1].Required.Equal(testutil.Qty("5")) {
			t.Errorf("expected milk 2 + 3 = 5, got %s", items[1].Required)
		}
		if len(items[1].MealTypes) != 2 {
			t.Errorf("expected breakfast and snack, got %v", items[1].MealTypes)
		}
	})

	t.Run("unresolved products are reported not guessed", func(t *testing.T) {
		ghost := testutil.FixtureProduct()
		dish := testutil.FixtureDish("1", []*models.Product{ghost})

		reqs := NewRequirements()
		reqs.AddDish(dish, 10, models.MealDinner)

		if reqs.Len() != 0 {
			t.Errorf("missing product should add no demand, got %d", reqs.Len())
		}
		if len(reqs.Missing) != 1 || reqs.Missing[0].ProductID != ghost.ID {
			t.Errorf("expected missing %s, got %+v", ghost.ID, reqs.Missing)
		}
	})
}
