// Package reporting aggregates persisted consumption logs. Every method is read-only.
package reporting

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/repository"
)

// Defaults applied when Options leaves a field unset.
const (
	DefaultExpiringWithinDays = 3
	DefaultWindowDays         = 7
	DefaultTopConsumedLimit   = 5
)

// Options configures a Service.
type Options struct {
	Logger             *slog.Logger
	ExpiringWithinDays int
	WindowDays         int
	TopConsumedLimit   int
}

// Service provides consumption reports.
type Service struct {
	consumption *repository.ConsumptionRepository
	menus       *repository.MenuRepository
	products    *repository.ProductRepository
	purchases   *repository.PurchaseRepository
	logger      *slog.Logger
	expiring    int
	window      int
	top         int
}

// NewService creates a new reporting service.
func NewService(db *sql.DB, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ExpiringWithinDays < 0 {
		opts.ExpiringWithinDays = DefaultExpiringWithinDays
	}
	if opts.WindowDays < 1 {
		opts.WindowDays = DefaultWindowDays
	}
	if opts.TopConsumedLimit < 1 {
		opts.TopConsumedLimit = DefaultTopConsumedLimit
	}
	return &Service{
		consumption: repository.NewConsumptionRepository(db),
		menus:       repository.NewMenuRepository(db),
		products:    repository.NewProductRepository(db),
		purchases:   repository.NewPurchaseRepository(db),
		logger:      opts.Logger,
		expiring:    opts.ExpiringWithinDays,
		window:      opts.WindowDays,
		top:         opts.TopConsumedLimit,
	}
}

func checkRange(start, end time.Time) error {
	if models.DateOnly(end).Before(models.DateOnly(start)) {
		return models.NewValidationError("end", "must not be before start")
	}
	return nil
}

// ============================================================================
// PERIOD
// ============================================================================

// PeriodSummary totals consumption for menus dated within [start, end].
// Cost is quantity times each product's current price per unit.
func (s *Service) PeriodSummary(ctx context.Context, start, end time.Time) (*PeriodSummary, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}

	entries, err := s.consumption.Between(ctx, "", start, end)
	if err != nil {
		return nil, err
	}
	menus, err := s.menus.List(ctx, start, end)
	if err != nil {
		return nil, err
	}

	summary := &PeriodSummary{
		Start:    models.DateOnly(start),
		End:      models.DateOnly(end),
		Products: totalsByProduct(entries),
	}

	byCategory := make(map[string]*CategoryTotal)
	for _, p := range summary.Products {
		c, ok := byCategory[p.Category]
		if !ok {
			c = &CategoryTotal{Category: p.Category}
			byCategory[p.Category] = c
		}
		c.Cost = c.Cost.Add(p.Cost)
		c.Products++
		summary.TotalCost = summary.TotalCost.Add(p.Cost)
	}
	for _, c := range byCategory {
		summary.Categories = append(summary.Categories, *c)
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		if c := summary.Categories[i].Cost.Cmp(summary.Categories[j].Cost); c != 0 {
			return c > 0
		}
		return summary.Categories[i].Category < summary.Categories[j].Category
	})

	meals := make(map[models.MealType]*MealTotal, len(models.MealTypes))
	for _, mt := range models.MealTypes {
		meals[mt] = &MealTotal{MealType: mt}
	}
	for _, m := range menus {
		for _, mt := range models.MealTypes {
			if served := m.Meal(mt).Served; served != nil {
				meals[mt].Served++
				meals[mt].Children += served.ChildCount
				summary.MealsServed++
			}
		}
	}
	for _, e := range entries {
		if mt, ok := meals[e.MealType]; ok {
			mt.Cost = mt.Cost.Add(e.Cost())
		}
	}
	for _, mt := range models.MealTypes {
		summary.Meals = append(summary.Meals, *meals[mt])
	}

	return summary, nil
}

// totalsByProduct sums entries per product, largest cost first.
func totalsByProduct(entries []models.ConsumptionEntry) []ProductTotal {
	byID := make(map[string]*ProductTotal)
	for _, e := range entries {
		t, ok := byID[e.ProductID]
		if !ok {
			t = &ProductTotal{
				ProductID:   e.ProductID,
				ProductName: e.ProductName,
				Category:    e.Category,
				Unit:        e.Unit,
			}
			byID[e.ProductID] = t
		}
		t.Quantity = t.Quantity.Add(e.Quantity)
		t.Cost = t.Cost.Add(e.Cost())
		t.Entries++
	}

	out := make([]ProductTotal, 0, len(byID))
	for _, t := range byID {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Cost.Cmp(out[j].Cost); c != 0 {
			return c > 0
		}
		if c := out[i].Quantity.Cmp(out[j].Quantity); c != 0 {
			return c > 0
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out
}

// ============================================================================
// DAY
// ============================================================================

// DailyBreakdown lists what each meal of a date consumed.
func (s *Service) DailyBreakdown(ctx context.Context, date time.Time) (*DayBreakdown, error) {
	menu, err := s.menus.GetByDate(ctx, nil, date)
	if err != nil {
		return nil, err
	}
	entries, err := s.consumption.Between(ctx, "", date, date)
	if err != nil {
		return nil, err
	}

	day := &DayBreakdown{Menu: menu}
	for _, mt := range models.MealTypes {
		meal := menu.Meal(mt)
		mb := MealBreakdown{MealType: mt, DishIDs: meal.DishIDs, Served: meal.Served}
		for _, e := range entries {
			if e.MealType == mt {
				mb.Entries = append(mb.Entries, e)
				mb.Cost = mb.Cost.Add(e.Cost())
			}
		}
		day.TotalCost = day.TotalCost.Add(mb.Cost)
		day.Meals = append(day.Meals, mb)
	}
	return day, nil
}

// ============================================================================
// PRODUCT
// ============================================================================

// ProductHistory joins a product's consumption and purchases between two dates, both inclusive.
func (s *Service) ProductHistory(ctx context.Context, productID string, start, end time.Time) (*ProductHistory, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, nil, productID)
	if err != nil {
		return nil, err
	}
	entries, err := s.consumption.Between(ctx, productID, start, end)
	if err != nil {
		return nil, err
	}
	purchases, err := s.purchases.ListByProduct(ctx, productID, models.DateOnly(start), models.DateOnly(end).AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	h := &ProductHistory{
		Product:     product,
		Start:       models.DateOnly(start),
		End:         models.DateOnly(end),
		Consumption: entries,
		Purchases:   purchases,
	}
	for _, e := range entries {
		h.Consumed = h.Consumed.Add(e.Quantity)
		h.ConsumedCost = h.ConsumedCost.Add(e.Cost())
	}
	for _, p := range purchases {
		h.Purchased = h.Purchased.Add(p.Quantity)
		h.PurchasedCost = h.PurchasedCost.Add(p.Cost())
	}
	return h, nil
}

// ============================================================================
// DASHBOARD
// ============================================================================

// Dashboard combines stock alerts with the most consumed products of the trailing window ending at now.
func (s *Service) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	today := models.DateOnly(now)
	d := &Dashboard{
		GeneratedAt: now,
		WindowStart: today.AddDate(0, 0, -(s.window - 1)),
		WindowCost:  decimal.Zero,
	}

	var err error
	if d.LowStock, err = s.products.LowStock(ctx); err != nil {
		return nil, err
	}
	if d.Expiring, err = s.products.ExpiringBetween(ctx, now, now.AddDate(0, 0, s.expiring)); err != nil {
		return nil, err
	}
	if d.Expired, err = s.products.ExpiredAt(ctx, now); err != nil {
		return nil, err
	}

	entries, err := s.consumption.Between(ctx, "", d.WindowStart, today)
	if err != nil {
		return nil, err
	}
	totals := totalsByProduct(entries)
	for _, t := range totals {
		d.WindowCost = d.WindowCost.Add(t.Cost)
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Quantity.GreaterThan(totals[j].Quantity)
	})
	if len(totals) > s.top {
		totals = totals[:s.top]
	}
	d.TopConsumed = totals

	menu, err := s.menus.GetByDate(ctx, nil, today)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		d.TodaysMenu = menu
		for _, mt := range models.MealTypes {
			if menu.Meal(mt).IsServed() {
				d.ServedToday++
			}
		}
	}

	s.logger.DebugContext(ctx, "dashboard built",
		"low_stock", len(d.LowStock), "expiring", len(d.Expiring), "expired", len(d.Expired), "top", len(d.TopConsumed))
	return d, nil
}
