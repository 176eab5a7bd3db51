package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sunnyside/kitchen/internal/models"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.MealServed(models.MealLunch, 20*time.Millisecond)
	m.MealServed(models.MealLunch, 5*time.Millisecond)
	m.MealCancelled(models.MealLunch)
	m.TemplateApplied(6, 1, 2)
	m.Notified(nil)
	m.Notified(errors.New("broker down"))

	if got := testutil.ToFloat64(m.mealsServed.WithLabelValues("lunch")); got != 2 {
		t.Errorf("expected 2 lunches served, got %v", got)
	}
	if got := testutil.ToFloat64(m.mealsCancelled.WithLabelValues("lunch")); got != 1 {
		t.Errorf("expected 1 cancellation, got %v", got)
	}
	if got := testutil.ToFloat64(m.menusPlanned); got != 6 {
		t.Errorf("expected 6 menus planned, got %v", got)
	}
	if got := testutil.ToFloat64(m.menusSkipped); got != 1 {
		t.Errorf("expected 1 skipped, got %v", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("failed")); got != 1 {
		t.Errorf("expected 1 failed notification, got %v", got)
	}
	if got := testutil.CollectAndCount(m.serveDuration); got != 1 {
		t.Errorf("expected one histogram series, got %d", got)
	}
}

func TestRejectReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&models.InsufficientStockError{ProductName: "Flour"}, ReasonInsufficientStock},
		{fmt.Errorf("serving: %w", models.ErrAlreadyServed), ReasonAlreadyServed},
		{models.NewValidationError("child_count", "must be positive"), ReasonValidation},
		{models.ErrStockConflict, ReasonConflict},
		{errors.New("disk full"), ReasonOther},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := RejectReason(tt.err); got != tt.want {
				t.Errorf("RejectReason(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestMetrics_ServeRejected(t *testing.T) {
	m := New()
	m.ServeRejected(&models.InsufficientStockError{})
	m.ServeRejected(nil)

	if got := testutil.ToFloat64(m.serveRejected.WithLabelValues(ReasonInsufficientStock)); got != 1 {
		t.Errorf("expected 1 rejection, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.MealServed(models.MealSnack, time.Second)
	m.MealCancelled(models.MealSnack)
	m.ServeRejected(models.ErrNotServed)
	m.StockDecreased()
	m.StockIncreased()
	m.TemplateApplied(1, 1, 1)
	m.Notified(nil)
	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.StockDecreased()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `kitchen_stock_movements_total{direction="decrease"} 1`) {
		t.Errorf("expected stock movement in exposition, got:\n%s", body)
	}
}
