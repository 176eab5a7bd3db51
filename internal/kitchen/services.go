// Package kitchen wires the stock, recipe, menu, planning and reporting
// services over one database.
package kitchen

import (
	"database/sql"
	"log/slog"

	"github.com/sunnyside/kitchen/internal/config"
	"github.com/sunnyside/kitchen/internal/database/seed"
	"github.com/sunnyside/kitchen/internal/metrics"
	"github.com/sunnyside/kitchen/internal/notify"
	"github.com/sunnyside/kitchen/internal/services/inventory"
	"github.com/sunnyside/kitchen/internal/services/menus"
	"github.com/sunnyside/kitchen/internal/services/planning"
	"github.com/sunnyside/kitchen/internal/services/recipes"
	"github.com/sunnyside/kitchen/internal/services/reporting"
	"github.com/sunnyside/kitchen/internal/util"
)

// Deps are the process-wide collaborators shared by every service.
type Deps struct {
	Logger   *slog.Logger
	Clock    util.Clock
	Metrics  *metrics.Metrics
	Notifier notify.Notifier
}

// Services is the full set of kitchen services.
type Services struct {
	Inventory *inventory.Ledger
	Recipes   *recipes.Catalog
	Menus     *menus.Service
	Planning  *planning.Engine
	Reporting *reporting.Service

	clock  util.Clock
	logger *slog.Logger
}

// New builds the services from cfg. A nil cfg uses config.Default().
func New(db *sql.DB, cfg *config.Config, deps Deps) *Services {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = util.SystemClock{}
	}

	ledger := inventory.NewLedger(db, inventory.Options{
		Logger:        deps.Logger.With("component", "inventory"),
		Clock:         deps.Clock,
		Metrics:       deps.Metrics,
		RetryAttempts: cfg.Kitchen.StockRetryAttempts,
	})
	catalog := recipes.NewCatalog(db, deps.Logger.With("component", "recipes"))
	menuSvc := menus.NewService(db, ledger, catalog, menus.Options{
		Logger:        deps.Logger.With("component", "menus"),
		Clock:         deps.Clock,
		Metrics:       deps.Metrics,
		RetryAttempts: cfg.Kitchen.StockRetryAttempts,
	})
	engine := planning.NewEngine(db, menuSvc, catalog, deps.Notifier, planning.Options{
		Logger:        deps.Logger.With("component", "planning"),
		Metrics:       deps.Metrics,
		MaxPeriodDays: cfg.Kitchen.MaxPeriodDays,
		ShortageRoles: cfg.Kitchen.ShortageRoles,
		Operator:      cfg.Daycare.Operator,
	})
	reports := reporting.NewService(db, reporting.Options{
		Logger:             deps.Logger.With("component", "reporting"),
		ExpiringWithinDays: cfg.Kitchen.ExpiringWithinDays,
		WindowDays:         cfg.Kitchen.DashboardWindowDays,
		TopConsumedLimit:   cfg.Kitchen.TopConsumedLimit,
	})

	return &Services{
		Inventory: ledger,
		Recipes:   catalog,
		Menus:     menuSvc,
		Planning:  engine,
		Reporting: reports,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
}

// Clock returns the clock the services run on.
func (s *Services) Clock() util.Clock {
	return s.clock
}

// Importer returns a catalog importer writing through these services.
func (s *Services) Importer() *seed.Importer {
	return seed.NewImporter(s.Inventory, s.Recipes, s.Planning, s.clock, s.logger.With("component", "seed"))
}
