package inventory

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/testutil"
	"github.com/sunnyside/kitchen/internal/tui/components"
)

var now = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func newTestView(products ...*models.Product) *View {
	v := New(nil, components.DefaultStyles())
	v.SetNow(now)
	v.SetSize(120, 30)
	v.Apply(LoadedMsg{List: &models.ProductList{
		Products:   products,
		Total:      len(products),
		Page:       1,
		PageSize:   20,
		TotalPages: 1,
	}})
	return v
}

func expiringIn(d time.Duration) func(*models.Product) {
	return func(p *models.Product) {
		exp := now.Add(d)
		p.ExpirationDate = &exp
	}
}

func named(name, category string) func(*models.Product) {
	return func(p *models.Product) {
		p.Name = name
		p.Category = category
	}
}

func TestView_Render(t *testing.T) {
	t.Run("loading", func(t *testing.T) {
		v := New(nil, components.DefaultStyles())
		if out := v.Render(120); !strings.Contains(out, "Loading...") {
			t.Errorf("expected loading message, got %q", out)
		}
	})

	t.Run("empty", func(t *testing.T) {
		v := newTestView()
		if out := v.Render(120); !strings.Contains(out, "No products found.") {
			t.Errorf("expected empty message, got %q", out)
		}
	})

	t.Run("error", func(t *testing.T) {
		v := New(nil, components.DefaultStyles())
		v.Apply(LoadedMsg{Err: errors.New("disk gone")})
		if out := v.Render(120); !strings.Contains(out, "Error: disk gone") {
			t.Errorf("expected error, got %q", out)
		}
	})

	t.Run("rows and help", func(t *testing.T) {
		v := newTestView(testutil.FixtureProduct(named("Oats", "grain")))
		out := v.Render(120)
		for _, want := range []string{"=== INVENTORY ===", "Oats", "grain", "Page 1/1", "c:Category"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output", want)
			}
		}
		if narrow := v.Render(50); !strings.Contains(narrow, "Enter:Info c:Cat p:Buy") {
			t.Error("expected compact help on narrow width")
		}
	})
}

func TestView_Labels(t *testing.T) {
	tests := []struct {
		name     string
		override func(*models.Product)
		expiry   string
		state    string
	}{
		{"no expiry", func(*models.Product) {}, "-", "ok"},
		{"expired", expiringIn(-48 * time.Hour), "EXPIRED", "ok"},
		{"today", expiringIn(2 * time.Hour), "TODAY", "ok"},
		{"days", expiringIn(5 * 24 * time.Hour), "5d", "ok"},
		{"far", expiringIn(60 * 24 * time.Hour), now.AddDate(0, 0, 60).Format(models.DateLayout), "ok"},
		{"low", func(p *models.Product) { p.StockQuantity = testutil.Qty("1") }, "-", "LOW"},
		{"inactive", func(p *models.Product) { p.Status = models.ProductStatusInactive }, "-", "inactive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.FixtureProduct(tt.override)
			v := newTestView(p)

			if got := v.expiryLabel(p); got != tt.expiry {
				t.Errorf("expiry = %q, want %q", got, tt.expiry)
			}
			if got := v.stateLabel(p); got != tt.state {
				t.Errorf("state = %q, want %q", got, tt.state)
			}
		})
	}
}

func TestView_Selection(t *testing.T) {
	v := newTestView(
		testutil.FixtureProduct(named("Oats", "grain")),
		testutil.FixtureProduct(named("Milk", "dairy")),
	)

	if got := v.Selected(); got == nil || got.Name != "Oats" {
		t.Fatalf("expected Oats selected, got %v", got)
	}
	v.MoveDown()
	if got := v.Selected(); got.Name != "Milk" {
		t.Errorf("expected Milk selected, got %s", got.Name)
	}
	v.MoveDown()
	if got := v.Selected(); got.Name != "Milk" {
		t.Errorf("expected selection clamped at Milk, got %s", got.Name)
	}
	v.MoveUp()
	if got := v.Selected(); got.Name != "Oats" {
		t.Errorf("expected Oats selected, got %s", got.Name)
	}
}

func TestView_CycleCategory(t *testing.T) {
	v := newTestView(
		testutil.FixtureProduct(named("Oats", "grain")),
		testutil.FixtureProduct(named("Milk", "dairy")),
		testutil.FixtureProduct(named("Rice", "grain")),
	)

	want := []string{"dairy", "grain", ""}
	for i, w := range want {
		v.CycleCategory()
		if got := v.Category(); got != w {
			t.Errorf("cycle %d: expected %q, got %q", i, w, got)
		}
	}
}

func TestView_Paging(t *testing.T) {
	v := New(nil, components.DefaultStyles())
	v.Apply(LoadedMsg{List: &models.ProductList{
		Products:   []*models.Product{testutil.FixtureProduct()},
		Total:      45,
		Page:       1,
		PageSize:   20,
		TotalPages: 3,
	}})

	if v.PrevPage() {
		t.Error("expected no page before the first")
	}
	if !v.NextPage() || !v.NextPage() {
		t.Fatal("expected two more pages")
	}
	if v.NextPage() {
		t.Error("expected no page after the last")
	}
	if !v.PrevPage() {
		t.Error("expected to step back")
	}
}

func TestView_RenderDetail(t *testing.T) {
	batch := "B-42"
	p := testutil.FixtureProduct(named("Yogurt", "dairy"), expiringIn(2*24*time.Hour), func(p *models.Product) {
		p.BatchNumber = &batch
		p.StockQuantity = testutil.Qty("4")
	})
	v := newTestView(p)

	out := v.RenderDetail(p, 90)
	for _, want := range []string{"=== YOGURT ===", "STOCK", "BATCH", "B-42", "4 kg", "below minimum", "(2 days)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in detail, got %q", want, out)
		}
	}

	if out := v.RenderDetail(nil, 90); !strings.Contains(out, "No product selected") {
		t.Error("expected placeholder for nil product")
	}
}

func TestPurchaseForm(t *testing.T) {
	p := testutil.FixtureProduct(named("Oats", "grain"))

	t.Run("defaults to product price", func(t *testing.T) {
		f := NewPurchaseForm(p, components.DefaultStyles())
		for _, k := range []string{"2", ".", "5"} {
			f.HandleKey(k)
		}
		f.HandleKey("enter")
		f.HandleKey("enter")
		f.HandleKey("enter")

		if !f.IsSubmitted() {
			t.Fatal("expected form submitted")
		}
		in, err := f.Input(now)
		if err != nil {
			t.Fatalf("Input failed: %v", err)
		}
		if in.ProductID != p.ID || in.Quantity.String() != "2.5" || !in.PricePerUnit.Equal(p.PricePerUnit) {
			t.Errorf("unexpected input %+v", in)
		}
		if !in.PurchasedAt.Equal(now) {
			t.Errorf("expected purchase time %v, got %v", now, in.PurchasedAt)
		}
	})

	t.Run("requires quantity", func(t *testing.T) {
		f := NewPurchaseForm(p, components.DefaultStyles())
		f.HandleKey("ctrl+s")
		if f.IsSubmitted() {
			t.Error("expected submit blocked without quantity")
		}
	})

	t.Run("rejects malformed numbers", func(t *testing.T) {
		f := NewPurchaseForm(p, components.DefaultStyles())
		f.HandleKey(".")
		f.HandleKey(".")
		if _, err := f.Input(now); !errors.Is(err, models.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("title", func(t *testing.T) {
		f := NewPurchaseForm(p, components.DefaultStyles())
		if out := f.Render(100); !strings.Contains(out, "RECEIVE Oats (kg)") {
			t.Errorf("expected title, got %q", out)
		}
	})
}
