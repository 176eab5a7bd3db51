// Package planning expands weekly templates into daily menus and forecasts the
// stock those menus will need.
package planning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sunnyside/kitchen/internal/metrics"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/notify"
	"github.com/sunnyside/kitchen/internal/repository"
	"github.com/sunnyside/kitchen/internal/services/menus"
	"github.com/sunnyside/kitchen/internal/services/recipes"
	"github.com/sunnyside/kitchen/internal/util"
)

// DefaultMaxPeriodDays bounds a single expansion when Options leaves it unset.
const DefaultMaxPeriodDays = 31

// MenuPlanner creates daily menus.
type MenuPlanner interface {
	CreateMenu(ctx context.Context, input menus.CreateMenuInput) (*models.DailyMenu, error)
}

// DishResolver looks up dishes with their ingredient products in one batch.
type DishResolver interface {
	GetDishes(ctx context.Context, tx *sql.Tx, ids []string) (map[string]*models.Dish, error)
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	MaxPeriodDays int
	ShortageRoles []string

	// Operator is recorded as the creator of expanded menus; empty uses the template's creator
	Operator string
}

// Engine owns weekly templates and their expansion.
type Engine struct {
	templates   *repository.TemplateRepository
	menus       *repository.MenuRepository
	planner     MenuPlanner
	dishes      DishResolver
	notifier    notify.Notifier
	idGenerator *util.IDGenerator
	logger      *slog.Logger
	metrics     *metrics.Metrics
	maxDays     int
	roles       []string
	operator    string
}

// NewEngine creates a new template engine. A nil notifier disables shortage notifications.
func NewEngine(db *sql.DB, planner MenuPlanner, dishes DishResolver, notifier notify.Notifier, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxPeriodDays < 1 {
		opts.MaxPeriodDays = DefaultMaxPeriodDays
	}
	return &Engine{
		templates:   repository.NewTemplateRepository(db),
		menus:       repository.NewMenuRepository(db),
		planner:     planner,
		dishes:      dishes,
		notifier:    notifier,
		idGenerator: util.NewIDGenerator(),
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		maxDays:     opts.MaxPeriodDays,
		roles:       opts.ShortageRoles,
		operator:    opts.Operator,
	}
}

// ============================================================================
// TEMPLATES
// ============================================================================

// CreateTemplate validates and stores a weekly template.
func (e *Engine) CreateTemplate(ctx context.Context, input CreateTemplateInput) (*models.WeeklyMenuTemplate, error) {
	tmpl := &models.WeeklyMenuTemplate{
		ID:                e.idGenerator.NewID(),
		Name:              strings.TrimSpace(input.Name),
		Description:       input.Description,
		DefaultChildCount: input.DefaultChildCount,
		IsActive:          true,
		CreatedBy:         input.CreatedBy,
	}
	if tmpl.CreatedBy == "" {
		return nil, models.NewValidationError("created_by", "is required")
	}
	if err := e.prepare(ctx, tmpl, input.Days); err != nil {
		return nil, err
	}

	if err := e.templates.Create(ctx, nil, tmpl); err != nil {
		return nil, fmt.Errorf("creating template: %w", err)
	}

	e.logger.InfoContext(ctx, "template created", "template_id", tmpl.ID, "name", tmpl.Name)
	return tmpl, nil
}

// UpdateTemplate rewrites a template and replaces all of its slots.
func (e *Engine) UpdateTemplate(ctx context.Context, id string, input UpdateTemplateInput) (*models.WeeklyMenuTemplate, error) {
	tmpl, err := e.templates.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	tmpl.Name = strings.TrimSpace(input.Name)
	tmpl.Description = input.Description
	tmpl.DefaultChildCount = input.DefaultChildCount
	tmpl.IsActive = input.IsActive
	if err := e.prepare(ctx, tmpl, input.Days); err != nil {
		return nil, err
	}

	if err := e.templates.Update(ctx, nil, tmpl); err != nil {
		return nil, fmt.Errorf("updating template: %w", err)
	}
	return tmpl, nil
}

func (e *Engine) prepare(ctx context.Context, tmpl *models.WeeklyMenuTemplate, days map[models.Weekday]map[models.MealType][]string) error {
	if tmpl.Name == "" {
		return models.NewValidationError("name", "is required")
	}
	if tmpl.DefaultChildCount < 0 {
		return models.NewValidationError("default_child_count", "cannot be negative")
	}

	tmpl.Days = make(map[models.Weekday]map[models.MealType][]string)
	for day, meals := range days {
		if day < models.Monday || day > models.Sunday {
			return models.NewValidationError("days", fmt.Sprintf("unknown %s", day))
		}
		for mt, ids := range meals {
			if !mt.Valid() {
				return models.NewValidationError("days", fmt.Sprintf("unknown meal %q on %s", mt, day))
			}
			if len(ids) > 0 {
				tmpl.SetDishes(day, mt, append([]string(nil), ids...))
			}
		}
	}

	ids := tmpl.AllDishIDs()
	if len(ids) == 0 {
		return nil
	}
	dishes, err := e.dishes.GetDishes(ctx, nil, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := dishes[id]; !ok {
			return models.NotFoundError("dish", id)
		}
	}
	return nil
}

// GetTemplate retrieves a template by ID.
func (e *Engine) GetTemplate(ctx context.Context, id string) (*models.WeeklyMenuTemplate, error) {
	return e.templates.GetByID(ctx, nil, id)
}

// ListTemplates lists templates by name.
func (e *Engine) ListTemplates(ctx context.Context, activeOnly bool) ([]*models.WeeklyMenuTemplate, error) {
	return e.templates.List(ctx, activeOnly)
}

// SetActive enables or retires a template.
func (e *Engine) SetActive(ctx context.Context, id string, active bool) error {
	if err := e.templates.SetActive(ctx, nil, id, active); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "template active flag changed", "template_id", id, "active", active)
	return nil
}

// DeleteTemplate removes a template. Menus it already created are kept.
func (e *Engine) DeleteTemplate(ctx context.Context, id string) error {
	if err := e.templates.Delete(ctx, nil, id); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "template deleted", "template_id", id)
	return nil
}

// ============================================================================
// EXPANSION
// ============================================================================

// ApplyToWeek expands a template over the seven days starting at start.
func (e *Engine) ApplyToWeek(ctx context.Context, templateID string, start time.Time, childCount int) (*ApplyResult, error) {
	return e.ApplyToPeriod(ctx, templateID, start, 7, childCount)
}

// ApplyToMonth expands a template from start through the last day of its month.
func (e *Engine) ApplyToMonth(ctx context.Context, templateID string, start time.Time, childCount int) (*ApplyResult, error) {
	return e.ApplyToPeriod(ctx, templateID, start, util.DaysRemainingInMonth(start), childCount)
}

// ApplyToPeriod creates a menu for every date in [start, start+numDays) that has none yet.
// Stock is only forecast against, never touched. Shortages are summed per product and
// sent to the shortage roles in one notification; a failed notification is reported
// in the result and does not undo the planned menus.
func (e *Engine) ApplyToPeriod(ctx context.Context, templateID string, start time.Time, numDays, childCount int) (*ApplyResult, error) {
	if numDays < 1 || numDays > e.maxDays {
		return nil, models.NewValidationError("num_days", fmt.Sprintf("must be between 1 and %d", e.maxDays))
	}

	tmpl, err := e.templates.GetByID(ctx, nil, templateID)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsActive {
		return nil, models.NewValidationError("template", fmt.Sprintf("%q is inactive", tmpl.Name))
	}
	if childCount <= 0 {
		childCount = tmpl.DefaultChildCount
	}
	if childCount <= 0 {
		return nil, models.NewValidationError("child_count", "must be positive when the template has no default child count")
	}

	// Products joined here are the stock snapshot every day is compared with
	dishes, err := e.dishes.GetDishes(ctx, nil, tmpl.AllDishIDs())
	if err != nil {
		return nil, fmt.Errorf("resolving template dishes: %w", err)
	}

	dates := util.DateRange(start, numDays)
	existing, err := e.menus.ExistingDates(ctx, nil, dates[0], dates[len(dates)-1])
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{
		TemplateID: tmpl.ID,
		Start:      dates[0],
		NumDays:    numDays,
		ChildCount: childCount,
	}
	createdBy := e.operator
	if createdBy == "" {
		createdBy = tmpl.CreatedBy
	}

	for _, date := range dates {
		if existing[date.Format(models.DateLayout)] {
			result.Skipped = append(result.Skipped, date)
			continue
		}

		day := models.WeekdayOf(date)
		reqs, unresolved := dayRequirements(tmpl, day, dishes, childCount)
		if len(unresolved) > 0 {
			result.Issues = append(result.Issues, DayIssue{
				Date: date,
				Err:  models.NotFoundError("dish", strings.Join(unresolved, ",")),
			})
			continue
		}
		for _, m := range reqs.Missing {
			e.logger.WarnContext(ctx, "ingredient product missing from forecast",
				"date", date.Format(models.DateLayout), "dish_id", m.DishID, "product_id", m.ProductID)
		}

		meals := make(map[models.MealType][]string)
		for _, mt := range models.MealTypes {
			if ids := tmpl.DishIDsFor(day, mt); len(ids) > 0 {
				meals[mt] = ids
			}
		}
		id := tmpl.ID
		menu, err := e.planner.CreateMenu(ctx, menus.CreateMenuInput{
			Date:            date,
			Meals:           meals,
			TotalChildCount: childCount,
			CreatedBy:       createdBy,
			TemplateID:      &id,
		})
		switch {
		case errors.Is(err, models.ErrDuplicateDate):
			result.Skipped = append(result.Skipped, date)
			continue
		case err != nil:
			e.logger.ErrorContext(ctx, "planning day failed",
				"template_id", tmpl.ID, "date", date.Format(models.DateLayout), "error", err)
			result.Issues = append(result.Issues, DayIssue{Date: date, Err: err})
			continue
		}
		result.Created = append(result.Created, menu)

		if short := reqs.Shortages(); len(short) > 0 {
			result.DayShortages = append(result.DayShortages, DayShortage{Date: date, Products: short})
		}
	}

	result.Shortages = aggregateShortages(result.DayShortages)
	e.metrics.TemplateApplied(len(result.Created), len(result.Skipped), len(result.Shortages))

	if result.HasShortages() && e.notifier != nil {
		err := e.notifier.NotifyRoles(ctx, shortageMessage(tmpl, result), e.roles)
		e.metrics.Notified(err)
		if err != nil {
			e.logger.ErrorContext(ctx, "shortage notification failed", "template_id", tmpl.ID, "error", err)
			result.NotifyError = err
		} else {
			result.Notified = true
		}
	}

	e.logger.InfoContext(ctx, "template applied",
		"template_id", tmpl.ID, "start", result.Start.Format(models.DateLayout), "days", numDays,
		"created", len(result.Created), "skipped", len(result.Skipped), "issues", len(result.Issues),
		"shortages", len(result.Shortages))
	return result, nil
}

// dayRequirements accumulates the four slots of one template day.
// Dish references missing from dishes are returned instead of accumulated.
func dayRequirements(tmpl *models.WeeklyMenuTemplate, day models.Weekday, dishes map[string]*models.Dish, childCount int) (*recipes.Requirements, []string) {
	reqs := recipes.NewRequirements()
	var unresolved []string
	for _, mt := range models.MealTypes {
		for _, id := range tmpl.DishIDsFor(day, mt) {
			d, ok := dishes[id]
			if !ok {
				unresolved = append(unresolved, id)
				continue
			}
			reqs.AddDish(d, childCount, mt)
		}
	}
	return reqs, unresolved
}

func aggregateShortages(days []DayShortage) []ProductShortage {
	byID := make(map[string]*ProductShortage)
	for _, day := range days {
		for _, req := range day.Products {
			ps, ok := byID[req.ProductID]
			if !ok {
				ps = &ProductShortage{
					ProductID:   req.ProductID,
					ProductName: req.ProductName,
					Unit:        req.Unit,
					Available:   req.Available,
				}
				byID[req.ProductID] = ps
			}
			ps.Required = ps.Required.Add(req.Required)
			ps.Shortage = ps.Shortage.Add(req.Shortage())
			ps.Days++
		}
	}

	out := make([]ProductShortage, 0, len(byID))
	for _, ps := range byID {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Shortage.Cmp(out[j].Shortage); c != 0 {
			return c > 0
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out
}

func shortageMessage(tmpl *models.WeeklyMenuTemplate, r *ApplyResult) string {
	end := r.Start.AddDate(0, 0, r.NumDays-1)
	var b strings.Builder
	fmt.Fprintf(&b, "Menu plan %q for %s to %s (%d children) is short of %d products:",
		tmpl.Name, r.Start.Format(models.DateLayout), end.Format(models.DateLayout), r.ChildCount, len(r.Shortages))
	for _, s := range r.Shortages {
		fmt.Fprintf(&b, "\n- %s: need %s %s, in stock %s, short %s over %d days",
			s.ProductName, s.Required.String(), s.Unit, s.Available.String(), s.Shortage.String(), s.Days)
	}
	return b.String()
}

// ============================================================================
// FORECAST
// ============================================================================

// CalculateRequiredProducts previews a template's demand over days days without creating
// anything. Day i uses the template's weekday i mod 7, Monday first.
func (e *Engine) CalculateRequiredProducts(ctx context.Context, templateID string, days, childCount int) (*Forecast, error) {
	return e.forecast(ctx, templateID, days, childCount, models.CycleWeekday)
}

// CalculateRequiredProductsFrom previews demand over the calendar dates starting at start,
// mapping each date to its weekday the same way ApplyToPeriod does.
func (e *Engine) CalculateRequiredProductsFrom(ctx context.Context, templateID string, start time.Time, days, childCount int) (*Forecast, error) {
	first := util.StartOfDay(start)
	return e.forecast(ctx, templateID, days, childCount, func(i int) models.Weekday {
		return models.WeekdayOf(first.AddDate(0, 0, i))
	})
}

func (e *Engine) forecast(ctx context.Context, templateID string, days, childCount int, weekday func(int) models.Weekday) (*Forecast, error) {
	if days < 1 {
		return nil, models.NewValidationError("days", "must be positive")
	}

	tmpl, err := e.templates.GetByID(ctx, nil, templateID)
	if err != nil {
		return nil, err
	}
	if childCount <= 0 {
		childCount = tmpl.DefaultChildCount
	}
	if childCount <= 0 {
		return nil, models.NewValidationError("child_count", "must be positive when the template has no default child count")
	}

	dishes, err := e.dishes.GetDishes(ctx, nil, tmpl.AllDishIDs())
	if err != nil {
		return nil, fmt.Errorf("resolving template dishes: %w", err)
	}

	reqs := recipes.NewRequirements()
	missingDishes := make(map[string]bool)
	for i := 0; i < days; i++ {
		day := weekday(i)
		for _, mt := range models.MealTypes {
			for _, id := range tmpl.DishIDsFor(day, mt) {
				d, ok := dishes[id]
				if !ok {
					missingDishes[id] = true
					continue
				}
				reqs.AddDish(d, childCount, mt)
			}
		}
	}

	f := &Forecast{
		TemplateID:      tmpl.ID,
		Days:            days,
		ChildCount:      childCount,
		Products:        reqs.Items(),
		MissingProducts: dedupeMissing(reqs.Missing),
	}
	for id := range missingDishes {
		f.MissingDishes = append(f.MissingDishes, id)
	}
	sort.Strings(f.MissingDishes)
	sort.SliceStable(f.Products, func(i, j int) bool {
		if c := f.Products[i].Shortage().Cmp(f.Products[j].Shortage()); c != 0 {
			return c > 0
		}
		return f.Products[i].ProductName < f.Products[j].ProductName
	})
	return f, nil
}

func dedupeMissing(missing []recipes.MissingProduct) []recipes.MissingProduct {
	seen := make(map[recipes.MissingProduct]bool, len(missing))
	var out []recipes.MissingProduct
	for _, m := range missing {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
