package inventory

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sunnyside/kitchen/internal/database"
	"github.com/sunnyside/kitchen/internal/metrics"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/testutil"
	"github.com/sunnyside/kitchen/internal/util"
)

func setupLedger(t *testing.T) (*Ledger, *testutil.TestDB, *util.FixedClock) {
	t.Helper()
	db := testutil.NewMigratedDB(t)
	clock := util.NewFixedClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	return NewLedger(db.DB, Options{Clock: clock, Metrics: metrics.New()}), db, clock
}

func createFlour(t *testing.T, l *Ledger, stock string) *models.Product {
	t.Helper()
	p, err := l.CreateProduct(context.Background(), CreateProductInput{
		Name:          "Flour",
		Category:      "grain",
		Unit:          "kg",
		InitialStock:  testutil.Qty(stock),
		MinStockLevel: testutil.Qty("5"),
		MaxStockLevel: testutil.Qty("200"),
		PricePerUnit:  testutil.Qty("1.20"),
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	return p
}

func TestLedger_Decrease(t *testing.T) {
	ledger, db, _ := setupLedger(t)
	ctx := context.Background()
	flour := createFlour(t, ledger, "40")

	t.Run("subtracts and bumps version", func(t *testing.T) {
		p, err := ledger.Decrease(ctx, nil, flour.ID, testutil.Qty("12.5"))
		if err != nil {
			t.Fatalf("Decrease failed: %v", err)
		}
		if !p.StockQuantity.Equal(testutil.Qty("27.5")) {
			t.Errorf("expected 27.5, got %s", p.StockQuantity)
		}
		if p.Version != 2 {
			t.Errorf("expected version 2, got %d", p.Version)
		}
	})

	t.Run("insufficient stock carries details and changes nothing", func(t *testing.T) {
		_, err := ledger.Decrease(ctx, nil, flour.ID, testutil.Qty("50"))
		var shortage *models.InsufficientStockError
		if !errors.As(err, &shortage) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if !errors.Is(err, models.ErrInsufficientStock) {
			t.Error("expected errors.Is ErrInsufficientStock")
		}
		if shortage.ProductName != "Flour" || !shortage.Required.Equal(testutil.Qty("50")) || !shortage.Available.Equal(testutil.Qty("27.5")) {
			t.Errorf("unexpected shortage %+v", shortage)
		}
		if got := db.StockOf(t, flour.ID); got != "27.5" {
			t.Errorf("stock should be untouched, got %s", got)
		}
	})

	t.Run("exact balance reaches zero", func(t *testing.T) {
		p, err := ledger.Decrease(ctx, nil, flour.ID, testutil.Qty("27.5"))
		if err != nil {
			t.Fatalf("Decrease failed: %v", err)
		}
		if !p.StockQuantity.IsZero() {
			t.Errorf("expected zero stock, got %s", p.StockQuantity)
		}
	})

	tests := []struct {
		name string
		qty  string
	}{
		{"zero", "0"},
		{"negative", "-3"},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name+" quantity", func(t *testing.T) {
			if _, err := ledger.Decrease(ctx, nil, flour.ID, testutil.Qty(tt.qty)); !errors.Is(err, models.ErrValidation) {
				t.Errorf("Decrease: expected ErrValidation, got %v", err)
			}
			if _, err := ledger.Increase(ctx, nil, flour.ID, testutil.Qty(tt.qty)); !errors.Is(err, models.ErrValidation) {
				t.Errorf("Increase: expected ErrValidation, got %v", err)
			}
		})
	}

	t.Run("unknown product", func(t *testing.T) {
		if _, err := ledger.Decrease(ctx, nil, "missing", testutil.Qty("1")); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestLedger_ConcurrentDecreasesNeverOverdraw(t *testing.T) {
	ledger, db, _ := setupLedger(t)
	ctx := context.Background()
	flour := createFlour(t, ledger, "100")

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, short int
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Decrease(ctx, nil, flour.ID, testutil.Qty("10"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, models.ErrInsufficientStock):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 || short != 2 {
		t.Errorf("expected 10 successes and 2 shortages, got %d and %d", succeeded, short)
	}
	if got := db.StockOf(t, flour.ID); got != "0" {
		t.Errorf("expected stock 0, got %s", got)
	}
}

func TestLedger_CallerTransaction(t *testing.T) {
	ledger, db, _ := setupLedger(t)
	ctx := context.Background()
	flour := createFlour(t, ledger, "10")

	tx := database.NewTransactor(db.DB)
	err := tx.WithTransaction(ctx, func(sqlTx *sql.Tx) error {
		if _, err := ledger.Decrease(ctx, sqlTx, flour.ID, testutil.Qty("4")); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil || err.Error() != "abort" {
		t.Fatalf("expected abort, got %v", err)
	}
	if got := db.StockOf(t, flour.ID); got != "10" {
		t.Errorf("rolled back decrease should leave 10, got %s", got)
	}
}

func TestLedger_Increase(t *testing.T) {
	ledger, _, _ := setupLedger(t)
	ctx := context.Background()
	flour := createFlour(t, ledger, "1")

	p, err := ledger.Increase(ctx, nil, flour.ID, testutil.Qty("2.25"))
	if err != nil {
		t.Fatalf("Increase failed: %v", err)
	}
	if !p.StockQuantity.Equal(testutil.Qty("3.25")) {
		t.Errorf("expected 3.25, got %s", p.StockQuantity)
	}
}

func TestLedger_ProductLifecycle(t *testing.T) {
	ledger, db, clock := setupLedger(t)
	ctx := context.Background()

	t.Run("create validation", func(t *testing.T) {
		tests := []struct {
			name  string
			input CreateProductInput
		}{
			{"missing name", CreateProductInput{Unit: "kg"}},
			{"missing unit", CreateProductInput{Name: "Salt"}},
			{"negative stock", CreateProductInput{Name: "Salt", Unit: "kg", InitialStock: testutil.Qty("-1")}},
			{"max below min", CreateProductInput{Name: "Salt", Unit: "kg", MinStockLevel: testutil.Qty("5"), MaxStockLevel: testutil.Qty("2")}},
			{"negative price", CreateProductInput{Name: "Salt", Unit: "kg", PricePerUnit: testutil.Qty("-0.1")}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := ledger.CreateProduct(ctx, tt.input); !errors.Is(err, models.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
			})
		}
	})

	flour := createFlour(t, ledger, "30")

	t.Run("update never writes stock", func(t *testing.T) {
		updated, err := ledger.UpdateProduct(ctx, flour.ID, UpdateProductInput{
			Name:          "Wheat flour",
			Category:      "grain",
			Unit:          "kg",
			MinStockLevel: testutil.Qty("35"),
			PricePerUnit:  testutil.Qty("1.40"),
		})
		if err != nil {
			t.Fatalf("UpdateProduct failed: %v", err)
		}
		if updated.Name != "Wheat flour" {
			t.Errorf("expected rename, got %s", updated.Name)
		}
		if got := db.StockOf(t, flour.ID); got != "30" {
			t.Errorf("expected stock 30, got %s", got)
		}

		low, err := ledger.LowStock(ctx)
		if err != nil {
			t.Fatalf("LowStock failed: %v", err)
		}
		if len(low) != 1 {
			t.Errorf("expected flour below new minimum, got %d", len(low))
		}
	})

	t.Run("soft status", func(t *testing.T) {
		if _, err := ledger.SetStatus(ctx, flour.ID, "gone"); !errors.Is(err, models.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
		p, err := ledger.SetStatus(ctx, flour.ID, models.ProductStatusInactive)
		if err != nil {
			t.Fatalf("SetStatus failed: %v", err)
		}
		if p.Status != models.ProductStatusInactive {
			t.Errorf("expected inactive, got %s", p.Status)
		}
		inactive := models.ProductStatusInactive
		list, err := ledger.ListProducts(ctx, models.ProductFilter{Status: &inactive}, models.DefaultPagination())
		if err != nil {
			t.Fatalf("ListProducts failed: %v", err)
		}
		if list.Total != 1 {
			t.Errorf("expected 1 inactive product, got %d", list.Total)
		}
	})

	t.Run("expiry uses the ledger clock", func(t *testing.T) {
		soon := clock.Now().AddDate(0, 0, 2)
		past := clock.Now().AddDate(0, 0, -1)
		for name, exp := range map[string]time.Time{"Yogurt": soon, "Cream": past} {
			exp := exp
			if _, err := ledger.CreateProduct(ctx, CreateProductInput{
				Name: name, Unit: "l", InitialStock: testutil.Qty("3"), ExpirationDate: &exp,
			}); err != nil {
				t.Fatalf("CreateProduct %s failed: %v", name, err)
			}
		}

		expiring, err := ledger.ExpiringWithin(ctx, 3)
		if err != nil {
			t.Fatalf("ExpiringWithin failed: %v", err)
		}
		if len(expiring) != 1 || expiring[0].Name != "Yogurt" {
			t.Errorf("expected Yogurt expiring, got %d products", len(expiring))
		}
		expired, err := ledger.Expired(ctx)
		if err != nil {
			t.Fatalf("Expired failed: %v", err)
		}
		if len(expired) != 1 || expired[0].Name != "Cream" {
			t.Errorf("expected Cream expired, got %d products", len(expired))
		}
		if _, err := ledger.ExpiringWithin(ctx, -1); !errors.Is(err, models.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestLedger_RecordPurchase(t *testing.T) {
	ledger, db, clock := setupLedger(t)
	ctx := context.Background()
	flour := createFlour(t, ledger, "5")

	rec, err := ledger.RecordPurchase(ctx, RecordPurchaseInput{
		ProductID:    flour.ID,
		Quantity:     testutil.Qty("25"),
		PricePerUnit: testutil.Qty("1.10"),
		Supplier:     "Mill & Co",
	})
	if err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}
	if !rec.PurchasedAt.Equal(clock.Now()) {
		t.Errorf("expected purchase at clock time, got %s", rec.PurchasedAt)
	}
	if got := db.StockOf(t, flour.ID); got != "30" {
		t.Errorf("expected stock 30, got %s", got)
	}

	purchases, err := ledger.ListPurchases(ctx, flour.ID, clock.Now().AddDate(0, 0, -1), clock.Now().AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ListPurchases failed: %v", err)
	}
	if len(purchases) != 1 || !purchases[0].Cost().Equal(testutil.Qty("27.5")) {
		t.Errorf("unexpected purchases %+v", purchases)
	}

	t.Run("unknown product records nothing", func(t *testing.T) {
		_, err := ledger.RecordPurchase(ctx, RecordPurchaseInput{ProductID: "missing", Quantity: testutil.Qty("1")})
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		db.AssertRowCount(t, "purchases", 1)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := ledger.RecordPurchase(ctx, RecordPurchaseInput{ProductID: flour.ID, Quantity: testutil.Qty("0")})
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}
