package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("bundled catalog is invalid: %v", err)
	}
	if len(c.Products) == 0 || len(c.Dishes) == 0 || len(c.Templates) == 0 {
		t.Errorf("bundled catalog should not be empty: %d products, %d dishes, %d templates",
			len(c.Products), len(c.Dishes), len(c.Templates))
	}
}

func TestParse_Quantities(t *testing.T) {
	c, err := Parse([]byte(`
products:
  - {name: Milk, unit: l, stock: 12.5, min: "2", price: 1.10}
dishes:
  - name: Cocoa
    category: snack
    ingredients:
      - {product: Milk, qty: 0.25}
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	p := c.Products[0]
	if p.Stock.Decimal().String() != "12.5" || p.Min.Decimal().String() != "2" || p.Price.Decimal().String() != "1.1" {
		t.Errorf("unexpected quantities %s %s %s", p.Stock.Decimal(), p.Min.Decimal(), p.Price.Decimal())
	}
	if !p.Max.Decimal().IsZero() {
		t.Errorf("omitted max should be zero, got %s", p.Max.Decimal())
	}
	if got := c.Dishes[0].Ingredients[0].Qty.Decimal().String(); got != "0.25" {
		t.Errorf("expected 0.25, got %s", got)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "malformed quantity",
			yaml: "products:\n  - {name: Milk, unit: l, stock: lots}\n",
			want: "invalid quantity",
		},
		{
			name: "duplicate product",
			yaml: "products:\n  - {name: Milk, unit: l}\n  - {name: Milk, unit: l}\n",
			want: "duplicate name",
		},
		{
			name: "missing unit",
			yaml: "products:\n  - {name: Milk}\n",
			want: "unit is required",
		},
		{
			name: "unknown product",
			yaml: "dishes:\n  - {name: Cocoa, category: snack, ingredients: [{product: Milk, qty: 1}]}\n",
			want: `unknown product "Milk"`,
		},
		{
			name: "bad category",
			yaml: "products:\n  - {name: Milk, unit: l}\ndishes:\n  - {name: Cocoa, category: brunch, ingredients: [{product: Milk, qty: 1}]}\n",
			want: "invalid category",
		},
		{
			name: "zero quantity",
			yaml: "products:\n  - {name: Milk, unit: l}\ndishes:\n  - {name: Cocoa, category: snack, ingredients: [{product: Milk, qty: 0}]}\n",
			want: "must be positive",
		},
		{
			name: "unknown weekday",
			yaml: "templates:\n  - {name: Week, days: {funday: {}}}\n",
			want: "unknown weekday",
		},
		{
			name: "unknown dish in template",
			yaml: "templates:\n  - {name: Week, days: {monday: {lunch: [Soup]}}}\n",
			want: `unknown dish "Soup"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("products:\n  - {name: Rice, unit: kg, stock: 5}\n"), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(c.Products) != 1 || c.Products[0].Name != "Rice" {
		t.Errorf("unexpected catalog %+v", c)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
