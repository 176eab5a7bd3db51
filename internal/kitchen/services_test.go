package kitchen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sunnyside/kitchen/internal/config"
	"github.com/sunnyside/kitchen/internal/database/seed"
	"github.com/sunnyside/kitchen/internal/metrics"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/testutil"
	"github.com/sunnyside/kitchen/internal/util"
)

type captureNotifier struct {
	roles [][]string
}

func (n *captureNotifier) NotifyRoles(_ context.Context, _ string, roles []string) error {
	n.roles = append(n.roles, roles)
	return nil
}

func TestServices_SeedPlanServeReport(t *testing.T) {
	db := testutil.NewMigratedDB(t)
	ctx := context.Background()
	monday := testutil.Monday()
	clock := util.NewFixedClock(monday.Add(8 * time.Hour))

	cfg := config.Default()
	cfg.Kitchen.ShortageRoles = []string{"manager"}
	cfg.Daycare.Operator = "night-shift"
	notifier := &captureNotifier{}

	svc := New(db.DB, cfg, Deps{Clock: clock, Metrics: metrics.New(), Notifier: notifier})
	if svc.Clock() != clock {
		t.Fatal("services should share the injected clock")
	}

	catalog, err := seed.Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if _, err := svc.Importer().Import(ctx, catalog); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	templates, err := svc.Planning.ListTemplates(ctx, true)
	if err != nil || len(templates) != 1 {
		t.Fatalf("expected the seeded template, got %v (%v)", templates, err)
	}

	// 200 children outstrip most of the seeded stock
	applied, err := svc.Planning.ApplyToWeek(ctx, templates[0].ID, monday, 200)
	if err != nil {
		t.Fatalf("ApplyToWeek failed: %v", err)
	}
	if len(applied.Created) != 7 {
		t.Fatalf("expected 7 menus, got %d", len(applied.Created))
	}
	if !applied.HasShortages() || len(notifier.roles) != 1 || notifier.roles[0][0] != "manager" {
		t.Errorf("expected one shortage notification to the configured role, got %v", notifier.roles)
	}
	if applied.Created[0].CreatedBy != "night-shift" {
		t.Errorf("expected configured operator as creator, got %q", applied.Created[0].CreatedBy)
	}

	menu, err := svc.Menus.GetMenuByDate(ctx, monday)
	if err != nil {
		t.Fatalf("GetMenuByDate failed: %v", err)
	}
	if _, err := svc.Menus.ServeMeal(ctx, menu.ID, models.MealBreakfast, 10); err != nil {
		t.Fatalf("ServeMeal failed: %v", err)
	}

	// Oat porridge for 10: 0.5 kg oats from 12
	oats, err := svc.Inventory.GetProductByName(ctx, "Oats")
	if err != nil {
		t.Fatalf("GetProductByName failed: %v", err)
	}
	if got := oats.StockQuantity.String(); got != "11.5" {
		t.Errorf("expected 11.5 kg oats, got %s", got)
	}

	day, err := svc.Reporting.DailyBreakdown(ctx, monday)
	if err != nil {
		t.Fatalf("DailyBreakdown failed: %v", err)
	}
	if day.TotalCost.IsZero() {
		t.Error("served breakfast should carry a cost")
	}

	if _, err := svc.Menus.ServeMeal(ctx, menu.ID, models.MealBreakfast, 10); !errors.Is(err, models.ErrAlreadyServed) {
		t.Errorf("expected ErrAlreadyServed, got %v", err)
	}
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	db := testutil.NewMigratedDB(t)

	svc := New(db.DB, nil, Deps{})
	if svc.Inventory == nil || svc.Recipes == nil || svc.Menus == nil || svc.Planning == nil || svc.Reporting == nil {
		t.Fatalf("expected every service to be wired: %+v", svc)
	}
	if _, ok := svc.Clock().(util.SystemClock); !ok {
		t.Errorf("expected the system clock, got %T", svc.Clock())
	}
}
