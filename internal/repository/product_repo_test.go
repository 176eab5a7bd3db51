package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/testutil"
)

func setupTestDB(t *testing.T) *testutil.TestDB {
	t.Helper()
	return testutil.NewMigratedDB(t)
}

func TestProductRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db.DB)
	ctx := context.Background()

	t.Run("round trips decimals and optional fields", func(t *testing.T) {
		batch := "B-17"
		product := testutil.FixtureExpiringProduct(5, func(p *models.Product) {
			p.Name = "Whole milk"
			p.Unit = "l"
			p.StockQuantity = testutil.Qty("12.750")
			p.PricePerUnit = testutil.Qty("0.95")
			p.BatchNumber = &batch
		})

		if err := repo.Create(ctx, nil, product); err != nil {
			t.Fatalf("failed to create product: %v", err)
		}

		found, err := repo.GetByID(ctx, nil, product.ID)
		if err != nil {
			t.Fatalf("failed to get product: %v", err)
		}
		if !found.StockQuantity.Equal(testutil.Qty("12.75")) {
			t.Errorf("expected stock 12.75, got %s", found.StockQuantity)
		}
		if !found.PricePerUnit.Equal(testutil.Qty("0.95")) {
			t.Errorf("expected price 0.95, got %s", found.PricePerUnit)
		}
		if found.BatchNumber == nil || *found.BatchNumber != batch {
			t.Errorf("expected batch %q, got %v", batch, found.BatchNumber)
		}
		if found.ExpirationDate == nil {
			t.Fatal("expected expiration date to be set")
		}
		if found.Version != 1 {
			t.Errorf("expected version 1, got %d", found.Version)
		}

		byName, err := repo.GetByName(ctx, nil, "Whole milk")
		if err != nil {
			t.Fatalf("failed to get by name: %v", err)
		}
		if byName.ID != product.ID {
			t.Errorf("expected ID %s, got %s", product.ID, byName.ID)
		}
	})

	t.Run("duplicate name is a validation error", func(t *testing.T) {
		first := testutil.FixtureProduct(func(p *models.Product) { p.Name = "Oats" })
		if err := repo.Create(ctx, nil, first); err != nil {
			t.Fatalf("failed to create product: %v", err)
		}
		second := testutil.FixtureProduct(func(p *models.Product) { p.Name = "Oats" })
		err := repo.Create(ctx, nil, second)
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("missing product is not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, nil, uuid.NewString())
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestProductRepository_GetByIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db.DB)
	ctx := context.Background()

	a := testutil.FixtureProduct()
	b := testutil.FixtureProduct()
	for _, p := range []*models.Product{a, b} {
		if err := repo.Create(ctx, nil, p); err != nil {
			t.Fatalf("failed to create product: %v", err)
		}
	}

	found, err := repo.GetByIDs(ctx, nil, []string{a.ID, b.ID, a.ID, "missing"})
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 products, got %d", len(found))
	}
	if _, ok := found["missing"]; ok {
		t.Error("unknown ID should be absent")
	}

	empty, err := repo.GetByIDs(ctx, nil, nil)
	if err != nil {
		t.Fatalf("GetByIDs(nil) failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty map, got %d entries", len(empty))
	}
}

func TestProductRepository_CompareAndSetStock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db.DB)
	ctx := context.Background()

	product := testutil.FixtureProduct()
	if err := repo.Create(ctx, nil, product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	t.Run("matching version writes and bumps version", func(t *testing.T) {
		if err := repo.CompareAndSetStock(ctx, nil, product.ID, testutil.Qty("60"), 1); err != nil {
			t.Fatalf("CompareAndSetStock failed: %v", err)
		}
		found, err := repo.GetByID(ctx, nil, product.ID)
		if err != nil {
			t.Fatalf("failed to get product: %v", err)
		}
		if !found.StockQuantity.Equal(testutil.Qty("60")) {
			t.Errorf("expected stock 60, got %s", found.StockQuantity)
		}
		if found.Version != 2 {
			t.Errorf("expected version 2, got %d", found.Version)
		}
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		err := repo.CompareAndSetStock(ctx, nil, product.ID, testutil.Qty("10"), 1)
		if !errors.Is(err, models.ErrStockConflict) {
			t.Errorf("expected ErrStockConflict, got %v", err)
		}
		if got := db.StockOf(t, product.ID); got != "60" {
			t.Errorf("stock should be unchanged at 60, got %s", got)
		}
	})

	t.Run("update leaves stock alone", func(t *testing.T) {
		found, err := repo.GetByID(ctx, nil, product.ID)
		if err != nil {
			t.Fatalf("failed to get product: %v", err)
		}
		found.StockQuantity = testutil.Qty("999")
		found.Category = "bakery"
		if err := repo.Update(ctx, nil, found); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if got := db.StockOf(t, product.ID); got != "60" {
			t.Errorf("Update must not write stock, got %s", got)
		}
	})
}

func TestProductRepository_Queries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db.DB)
	ctx := context.Background()
	now := time.Now().UTC()

	low := testutil.FixtureProduct(func(p *models.Product) {
		p.Name = "Butter"
		p.StockQuantity = testutil.Qty("2")
		p.MinStockLevel = testutil.Qty("5")
	})
	soon := testutil.FixtureExpiringProduct(2, func(p *models.Product) { p.Name = "Yogurt" })
	later := testutil.FixtureExpiringProduct(20, func(p *models.Product) { p.Name = "Cheese" })
	expired := testutil.FixtureExpiringProduct(-1, func(p *models.Product) { p.Name = "Cream" })
	retired := testutil.FixtureProduct(func(p *models.Product) {
		p.Name = "Old flour"
		p.StockQuantity = testutil.Qty("0")
		p.Status = models.ProductStatusDiscontinued
	})
	for _, p := range []*models.Product{low, soon, later, expired, retired} {
		if err := repo.Create(ctx, nil, p); err != nil {
			t.Fatalf("failed to create %s: %v", p.Name, err)
		}
	}

	t.Run("low stock ignores inactive products", func(t *testing.T) {
		got, err := repo.LowStock(ctx)
		if err != nil {
			t.Fatalf("LowStock failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != low.ID {
			t.Errorf("expected only %s, got %v", low.Name, names(got))
		}
	})

	t.Run("expiring window", func(t *testing.T) {
		got, err := repo.ExpiringBetween(ctx, now, now.AddDate(0, 0, 3))
		if err != nil {
			t.Fatalf("ExpiringBetween failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != soon.ID {
			t.Errorf("expected only %s, got %v", soon.Name, names(got))
		}
	})

	t.Run("expired", func(t *testing.T) {
		got, err := repo.ExpiredAt(ctx, now)
		if err != nil {
			t.Fatalf("ExpiredAt failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != expired.ID {
			t.Errorf("expected only %s, got %v", expired.Name, names(got))
		}
	})

	t.Run("list filters and paginates", func(t *testing.T) {
		status := models.ProductStatusActive
		list, err := repo.List(ctx, models.ProductFilter{Status: &status}, models.Pagination{Page: 1, PageSize: 2})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if list.Total != 4 {
			t.Errorf("expected 4 active products, got %d", list.Total)
		}
		if len(list.Products) != 2 {
			t.Errorf("expected page of 2, got %d", len(list.Products))
		}
		if list.TotalPages != 2 {
			t.Errorf("expected 2 pages, got %d", list.TotalPages)
		}

		search, err := repo.List(ctx, models.ProductFilter{Search: "flour"}, models.Pagination{Page: 1, PageSize: 10})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if search.Total != 1 {
			t.Errorf("expected 1 search hit, got %d", search.Total)
		}
	})
}

func TestPurchaseRepository(t *testing.T) {
	db := setupTestDB(t)
	products := NewProductRepository(db.DB)
	repo := NewPurchaseRepository(db.DB)
	ctx := context.Background()

	product := testutil.FixtureProduct()
	if err := products.Create(ctx, nil, product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	day := testutil.Monday()
	for i, qty := range []string{"10", "5.5", "3"} {
		rec := &models.PurchaseRecord{
			ID:           uuid.NewString(),
			ProductID:    product.ID,
			Quantity:     testutil.Qty(qty),
			PricePerUnit: testutil.Qty("2"),
			Supplier:     "Green Farm",
			PurchasedAt:  day.AddDate(0, 0, i),
		}
		if err := repo.Create(ctx, nil, rec); err != nil {
			t.Fatalf("failed to create purchase: %v", err)
		}
	}

	got, err := repo.ListByProduct(ctx, product.ID, day, day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("ListByProduct failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 purchases in [start, end), got %d", len(got))
	}
	if !got[1].Quantity.Equal(testutil.Qty("5.5")) {
		t.Errorf("expected second purchase 5.5, got %s", got[1].Quantity)
	}
	if !got[1].Cost().Equal(testutil.Qty("11")) {
		t.Errorf("expected cost 11, got %s", got[1].Cost())
	}

	all, err := repo.ListByProduct(ctx, "", day, day.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("ListByProduct failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 purchases, got %d", len(all))
	}
}

func names(products []*models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}
