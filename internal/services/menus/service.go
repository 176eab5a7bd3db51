// Package menus runs the daily meal state machine: planning slots, serving them
// against stock, and cancelling served meals.
package menus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunnyside/kitchen/internal/database"
	"github.com/sunnyside/kitchen/internal/metrics"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/repository"
	"github.com/sunnyside/kitchen/internal/services/recipes"
	"github.com/sunnyside/kitchen/internal/util"
)

// StockLedger moves product stock inside a caller's transaction.
type StockLedger interface {
	Decrease(ctx context.Context, tx *sql.Tx, productID string, qty decimal.Decimal) (*models.Product, error)
	Increase(ctx context.Context, tx *sql.Tx, productID string, qty decimal.Decimal) (*models.Product, error)
}

// DishResolver looks up dishes with their ingredient products in one batch.
type DishResolver interface {
	GetDishes(ctx context.Context, tx *sql.Tx, ids []string) (map[string]*models.Dish, error)
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Logger        *slog.Logger
	Clock         util.Clock
	Metrics       *metrics.Metrics
	RetryAttempts int
}

// Service provides daily menu operations.
type Service struct {
	transactor  *database.Transactor
	menus       *repository.MenuRepository
	ledger      StockLedger
	dishes      DishResolver
	idGenerator *util.IDGenerator
	logger      *slog.Logger
	clock       util.Clock
	metrics     *metrics.Metrics
	attempts    int
}

// NewService creates a new menu service.
func NewService(db *sql.DB, ledger StockLedger, dishes DishResolver, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = util.SystemClock{}
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = util.DefaultRetryAttempts
	}
	return &Service{
		transactor:  database.NewTransactor(db),
		menus:       repository.NewMenuRepository(db),
		ledger:      ledger,
		dishes:      dishes,
		idGenerator: util.NewIDGenerator(),
		logger:      opts.Logger,
		clock:       opts.Clock,
		metrics:     opts.Metrics,
		attempts:    opts.RetryAttempts,
	}
}

// inTx runs fn in one transaction, restarting it when a stock write loses a version race.
func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return util.Retry(ctx, s.attempts, models.ErrStockConflict, func() error {
		return s.transactor.WithTransaction(ctx, fn)
	})
}

// ============================================================================
// PLANNING
// ============================================================================

// CreateMenu plans a menu for a date. Only one menu may exist per date.
func (s *Service) CreateMenu(ctx context.Context, input CreateMenuInput) (*models.DailyMenu, error) {
	if input.Date.IsZero() {
		return nil, models.NewValidationError("date", "is required")
	}
	if input.CreatedBy == "" {
		return nil, models.NewValidationError("created_by", "is required")
	}
	if input.TotalChildCount < 0 {
		return nil, models.NewValidationError("total_child_count", "cannot be negative")
	}

	menu := models.NewDailyMenu(s.idGenerator.NewID(), models.DateOnly(input.Date))
	menu.TotalChildCount = input.TotalChildCount
	menu.Notes = input.Notes
	menu.CreatedBy = input.CreatedBy
	menu.TemplateID = input.TemplateID
	for mt, ids := range input.Meals {
		if !mt.Valid() {
			return nil, models.NewValidationError("meal_type", fmt.Sprintf("unknown meal %q", mt))
		}
		menu.Meal(mt).DishIDs = append([]string(nil), ids...)
	}

	err := s.transactor.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := s.requireDishes(ctx, tx, menu.AllDishIDs()); err != nil {
			return err
		}
		if existing, err := s.menus.GetByDate(ctx, tx, menu.Date); err == nil {
			return fmt.Errorf("menu %s already planned for %s: %w", existing.ID, menu.DateKey(), models.ErrDuplicateDate)
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		return s.menus.Create(ctx, tx, menu)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "menu created", "menu_id", menu.ID, "date", menu.DateKey(), "created_by", menu.CreatedBy)
	return menu, nil
}

func (s *Service) requireDishes(ctx context.Context, tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	dishes, err := s.dishes.GetDishes(ctx, tx, ids)
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

// GetMenu retrieves a menu by ID.
func (s *Service) GetMenu(ctx context.Context, id string) (*models.DailyMenu, error) {
	return s.menus.GetByID(ctx, nil, id)
}

// GetMenuByDate retrieves the menu planned for a calendar date.
func (s *Service) GetMenuByDate(ctx context.Context, date time.Time) (*models.DailyMenu, error) {
	return s.menus.GetByDate(ctx, nil, date)
}

// ListMenus returns menus dated within [start, end].
func (s *Service) ListMenus(ctx context.Context, start, end time.Time) ([]*models.DailyMenu, error) {
	if models.DateOnly(end).Before(models.DateOnly(start)) {
		return nil, models.NewValidationError("end", "must not be before start")
	}
	return s.menus.List(ctx, start, end)
}

// UpdateMenu changes notes, headcount, or the dishes of unserved slots.
func (s *Service) UpdateMenu(ctx context.Context, id string, input UpdateMenuInput) (*models.DailyMenu, error) {
	if input.TotalChildCount != nil && *input.TotalChildCount < 0 {
		return nil, models.NewValidationError("total_child_count", "cannot be negative")
	}

	var menu *models.DailyMenu
	err := s.transactor.WithTransaction(ctx, func(tx *sql.Tx) error {
		m, err := s.menus.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}

		for mt, ids := range input.Meals {
			if !mt.Valid() {
				return models.NewValidationError("meal_type", fmt.Sprintf("unknown meal %q", mt))
			}
			if m.Meal(mt).IsServed() {
				return fmt.Errorf("%s on %s: %w", mt, m.DateKey(), models.ErrAlreadyServed)
			}
			if err := s.requireDishes(ctx, tx, ids); err != nil {
				return err
			}
			if err := s.menus.ReplaceMealDishes(ctx, tx, m.ID, mt, ids); err != nil {
				return err
			}
			m.Meal(mt).DishIDs = append([]string(nil), ids...)
		}

		if input.Notes != nil || input.TotalChildCount != nil {
			if input.Notes != nil {
				m.Notes = *input.Notes
			}
			if input.TotalChildCount != nil {
				m.TotalChildCount = *input.TotalChildCount
			}
			if err := s.menus.UpdateHeader(ctx, tx, m); err != nil {
				return err
			}
		}
		menu = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return menu, nil
}

// DeleteMenu removes a menu that has nothing served. Served meals must be cancelled first.
func (s *Service) DeleteMenu(ctx context.Context, id string) error {
	err := s.transactor.WithTransaction(ctx, func(tx *sql.Tx) error {
		m, err := s.menus.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.AnyServed() {
			return fmt.Errorf("menu %s has served meals: %w", id, models.ErrAlreadyServed)
		}
		return s.menus.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "menu deleted", "menu_id", id)
	return nil
}

// AddDishToMeal appends a dish to an unserved slot.
func (s *Service) AddDishToMeal(ctx context.Context, menuID string, mt models.MealType, dishID string) (*models.DailyMenu, error) {
	return s.editSlot(ctx, menuID, mt, func(tx *sql.Tx, meal *models.Meal) ([]string, error) {
		for _, id := range meal.DishIDs {
			if id == dishID {
				return nil, models.NewValidationError("dish_id", "dish is already part of this meal")
			}
		}
		if err := s.requireDishes(ctx, tx, []string{dishID}); err != nil {
			return nil, err
		}
		return append(append([]string(nil), meal.DishIDs...), dishID), nil
	})
}

// RemoveDishFromMeal drops a dish from an unserved slot.
func (s *Service) RemoveDishFromMeal(ctx context.Context, menuID string, mt models.MealType, dishID string) (*models.DailyMenu, error) {
	return s.editSlot(ctx, menuID, mt, func(_ *sql.Tx, meal *models.Meal) ([]string, error) {
		for i, id := range meal.DishIDs {
			if id == dishID {
				kept := append([]string(nil), meal.DishIDs[:i]...)
				return append(kept, meal.DishIDs[i+1:]...), nil
			}
		}
		return nil, models.NotFoundError("dish in "+string(mt), dishID)
	})
}

func (s *Service) editSlot(ctx context.Context, menuID string, mt models.MealType, edit func(*sql.Tx, *models.Meal) ([]string, error)) (*models.DailyMenu, error) {
	if !mt.Valid() {
		return nil, models.NewValidationError("meal_type", "must be one of breakfast, lunch, dinner, snack")
	}

	var menu *models.DailyMenu
	err := s.transactor.WithTransaction(ctx, func(tx *sql.Tx) error {
		m, err := s.menus.GetByID(ctx, tx, menuID)
		if err != nil {
			return err
		}
		meal := m.Meal(mt)
		if meal.IsServed() {
			return fmt.Errorf("%s on %s: %w", mt, m.DateKey(), models.ErrAlreadyServed)
		}
		ids, err := edit(tx, meal)
		if err != nil {
			return err
		}
		if err := s.menus.ReplaceMealDishes(ctx, tx, m.ID, mt, ids); err != nil {
			return err
		}
		meal.DishIDs = ids
		menu = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return menu, nil
}

// ============================================================================
// SERVING
// ============================================================================

// ServeMeal deducts every ingredient of a slot for childCount children and marks it served.
// Either every product is deducted or none is: a single shortfall aborts with
// *models.InsufficientStockError and commits nothing.
func (s *Service) ServeMeal(ctx context.Context, menuID string, mt models.MealType, childCount int) (*ServeResult, error) {
	started := time.Now()
	result, err := s.serveMeal(ctx, menuID, mt, childCount)
	if err != nil {
		s.metrics.ServeRejected(err)
		s.logger.WarnContext(ctx, "serve rejected",
			"menu_id", menuID, "meal_type", string(mt), "child_count", childCount, "error", err)
		return nil, err
	}

	s.metrics.MealServed(mt, time.Since(started))
	s.logger.InfoContext(ctx, "meal served",
		"menu_id", menuID, "meal_type", string(mt), "child_count", childCount, "products", len(result.Logs))
	for _, m := range result.MissingProducts {
		s.logger.WarnContext(ctx, "ingredient product missing, no stock deducted",
			"menu_id", menuID, "dish_id", m.DishID, "dish", m.DishName, "product_id", m.ProductID)
	}
	return result, nil
}

func (s *Service) serveMeal(ctx context.Context, menuID string, mt models.MealType, childCount int) (*ServeResult, error) {
	if !mt.Valid() {
		return nil, models.NewValidationError("meal_type", "must be one of breakfast, lunch, dinner, snack")
	}
	if childCount <= 0 {
		return nil, models.NewValidationError("child_count", "must be positive")
	}

	var result *ServeResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		menu, err := s.menus.GetByID(ctx, tx, menuID)
		if err != nil {
			return err
		}
		meal := menu.Meal(mt)
		if meal.IsServed() {
			return fmt.Errorf("%s on %s: %w", mt, menu.DateKey(), models.ErrAlreadyServed)
		}
		if len(meal.DishIDs) == 0 {
			return models.NewValidationError("dishes", fmt.Sprintf("%s on %s has no dishes", mt, menu.DateKey()))
		}

		reqs, err := s.accumulate(ctx, tx, meal.DishIDs, childCount, mt)
		if err != nil {
			return err
		}

		for _, req := range reqs.Items() {
			if !req.Sufficient() {
				return &models.InsufficientStockError{
					ProductID:   req.ProductID,
					ProductName: req.ProductName,
					Unit:        req.Unit,
					Required:    req.Required,
					Available:   req.Available,
				}
			}
		}

		now := s.clock.Now().UTC()
		var logs []models.ConsumptionLog
		for _, req := range reqs.Items() {
			if !req.Required.IsPositive() {
				continue
			}
			if _, err := s.ledger.Decrease(ctx, tx, req.ProductID, req.Required); err != nil {
				return err
			}
			logs = append(logs, models.ConsumptionLog{
				ID:          s.idGenerator.NewID(),
				MenuID:      menu.ID,
				MealType:    mt,
				ProductID:   req.ProductID,
				ProductName: req.ProductName,
				Quantity:    req.Required,
				Unit:        req.Unit,
				ConsumedAt:  now,
			})
		}

		if err := s.menus.InsertLogs(ctx, tx, logs); err != nil {
			return err
		}
		if err := s.menus.MarkServed(ctx, tx, menu.ID, mt, now, childCount); err != nil {
			return err
		}
		if err := menu.MarkServed(mt, now, childCount, logs); err != nil {
			return err
		}

		result = &ServeResult{Menu: menu, Logs: logs, MissingProducts: reqs.Missing}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// accumulate resolves dishes and sums their ingredients. Every dish reference must resolve.
func (s *Service) accumulate(ctx context.Context, tx *sql.Tx, dishIDs []string, childCount int, mt models.MealType) (*recipes.Requirements, error) {
	dishes, err := s.dishes.GetDishes(ctx, tx, dishIDs)
	if err != nil {
		return nil, err
	}
	reqs := recipes.NewRequirements()
	for _, id := range dishIDs {
		d, ok := dishes[id]
		if !ok {
			return nil, models.NotFoundError("dish", id)
		}
		reqs.AddDish(d, childCount, mt)
	}
	return reqs, nil
}

// CancelMeal restores every product deducted by a served slot and returns it to unserved.
func (s *Service) CancelMeal(ctx context.Context, menuID string, mt models.MealType) (*models.DailyMenu, error) {
	if !mt.Valid() {
		return nil, models.NewValidationError("meal_type", "must be one of breakfast, lunch, dinner, snack")
	}

	var menu *models.DailyMenu
	var restored int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		m, err := s.menus.GetByID(ctx, tx, menuID)
		if err != nil {
			return err
		}
		logs, err := m.MarkUnserved(mt)
		if err != nil {
			return fmt.Errorf("%s on %s: %w", mt, m.DateKey(), err)
		}

		for _, l := range logs {
			if _, err := s.ledger.Increase(ctx, tx, l.ProductID, l.Quantity); err != nil {
				return fmt.Errorf("restoring %s: %w", l.ProductName, err)
			}
		}
		if _, err := s.menus.DeleteLogs(ctx, tx, m.ID, mt); err != nil {
			return err
		}
		if err := s.menus.ClearServed(ctx, tx, m.ID, mt); err != nil {
			return err
		}
		menu = m
		restored = len(logs)
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "cancel rejected", "menu_id", menuID, "meal_type", string(mt), "error", err)
		return nil, err
	}

	s.metrics.MealCancelled(mt)
	s.logger.InfoContext(ctx, "meal cancelled", "menu_id", menuID, "meal_type", string(mt), "products_restored", restored)
	return menu, nil
}

// ============================================================================
// PROJECTION
// ============================================================================

// CalculateDailyProductConsumption totals the demand of every slot of a date's menu.
// A non-positive childCount falls back to the menu's total child count.
func (s *Service) CalculateDailyProductConsumption(ctx context.Context, date time.Time, childCount int) (*DailyConsumption, error) {
	menu, err := s.menus.GetByDate(ctx, nil, date)
	if err != nil {
		return nil, err
	}
	if childCount <= 0 {
		childCount = menu.TotalChildCount
	}
	if childCount <= 0 {
		return nil, models.NewValidationError("child_count", "must be positive when the menu has no total child count")
	}

	dishes, err := s.dishes.GetDishes(ctx, nil, menu.AllDishIDs())
	if err != nil {
		return nil, err
	}

	out := &DailyConsumption{MenuID: menu.ID, Date: menu.Date, ChildCount: childCount}
	reqs := recipes.NewRequirements()
	for _, mt := range models.MealTypes {
		for _, id := range menu.Meal(mt).DishIDs {
			d, ok := dishes[id]
			if !ok {
				out.MissingDishes = append(out.MissingDishes, id)
				continue
			}
			reqs.AddDish(d, childCount, mt)
		}
	}
	out.Products = reqs.Items()
	out.MissingProducts = reqs.Missing

	for _, m := range out.MissingProducts {
		s.logger.WarnContext(ctx, "ingredient product missing from projection",
			"menu_id", menu.ID, "dish_id", m.DishID, "product_id", m.ProductID)
	}
	return out, nil
}
