package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sunnyside/kitchen/internal/database"
	"github.com/sunnyside/kitchen/internal/database/seed"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/services/planning"
	"github.com/sunnyside/kitchen/internal/tui"
	"github.com/sunnyside/kitchen/internal/util"
)

// ============================================================================
// DATABASE
// ============================================================================

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				migrator, err := database.NewMigrator(a.db)
				if err != nil {
					return fmt.Errorf("creating migrator: %w", err)
				}
				status, err := migrator.Status(ctx)
				if err != nil {
					return err
				}
				printMigrations(cmd.OutOrStdout(), a.migration, status)
				return nil
			})
		},
	}
}

func newSeedCmd(opts *globalOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import products, dishes and templates from a catalog",
		Long: `Seed imports a YAML catalog of products, dishes and weekly templates.
Entries whose name already exists are skipped, so seeding twice is safe.
Without --file the catalog bundled with the binary is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(file)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				res, err := a.svc.Importer().Import(ctx, catalog)
				if err != nil {
					return err
				}
				printSeedResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Catalog YAML file (default: bundled catalog)")
	return cmd
}

func loadCatalog(file string) (*seed.Catalog, error) {
	if file == "" {
		return seed.Default()
	}
	return seed.Load(file)
}

func newBackupCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the database to the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				path, err := a.db.Backup(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", path)
				return nil
			})
		},
	}
}

func newRestoreCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Replace the database with the newest intact backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()

			if e.backupDir == "" {
				return errors.New("backup directory not available")
			}
			used, err := database.RestoreLatestBackup(e.dbPath, e.backupDir)
			if err != nil {
				return fmt.Errorf("restoring database: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %s\n", e.dbPath, used)
			return nil
		},
	}
}

func newDoctorCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Inspect the database file and its backups without opening it for writing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()

			diag, err := database.Diagnose(cmd.Context(), e.dbPath, e.backupDir)
			if err != nil {
				return err
			}
			printDiagnostics(cmd.OutOrStdout(), e.cfgPath, diag)
			return nil
		},
	}
}

// ============================================================================
// SERVING
// ============================================================================

func newServeMealCmd(opts *globalOptions) *cobra.Command {
	var (
		date     string
		meal     string
		children int
	)

	cmd := &cobra.Command{
		Use:   "serve-meal",
		Short: "Serve one meal of a day's menu, deducting its ingredients from stock",
		Long: `Serve-meal deducts every ingredient of the slot's dishes for the given
number of children in one transaction. Nothing is deducted when any
product is short.

Without --children the menu's planned child count is used, then the
configured default.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				day, mt, err := parseSlot(date, meal, a.clock)
				if err != nil {
					return err
				}
				menu, err := a.svc.Menus.GetMenuByDate(ctx, day)
				if err != nil {
					return fmt.Errorf("menu for %s: %w", day.Format(models.DateLayout), err)
				}

				count := children
				if count == 0 {
					count = menu.TotalChildCount
				}
				if count == 0 {
					count = a.cfg.Daycare.DefaultChildCount
				}

				res, err := a.svc.Menus.ServeMeal(ctx, menu.ID, mt, count)
				if errors.Is(err, models.ErrInsufficientStock) {
					return fmt.Errorf("cannot serve %s for %d children: %w", mt, count, err)
				}
				if err != nil {
					return err
				}
				printServeResult(cmd.OutOrStdout(), mt, count, res)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "today", "Menu date (YYYY-MM-DD, today or tomorrow)")
	cmd.Flags().StringVarP(&meal, "meal", "m", "", "Meal type (breakfast, lunch, dinner, snack)")
	cmd.Flags().IntVarP(&children, "children", "n", 0, "Number of children served")
	_ = cmd.MarkFlagRequired("meal")
	return cmd
}

func newCancelMealCmd(opts *globalOptions) *cobra.Command {
	var (
		date string
		meal string
	)

	cmd := &cobra.Command{
		Use:   "cancel-meal",
		Short: "Cancel a served meal, returning its deductions to stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				day, mt, err := parseSlot(date, meal, a.clock)
				if err != nil {
					return err
				}
				menu, err := a.svc.Menus.GetMenuByDate(ctx, day)
				if err != nil {
					return fmt.Errorf("menu for %s: %w", day.Format(models.DateLayout), err)
				}
				restored := len(menu.LogsFor(mt))
				if _, err := a.svc.Menus.CancelMeal(ctx, menu.ID, mt); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s on %s, restored %d products\n",
					mt, menu.DateKey(), restored)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "today", "Menu date (YYYY-MM-DD, today or tomorrow)")
	cmd.Flags().StringVarP(&meal, "meal", "m", "", "Meal type (breakfast, lunch, dinner, snack)")
	_ = cmd.MarkFlagRequired("meal")
	return cmd
}

// ============================================================================
// PLANNING
// ============================================================================

func newPlanCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Expand weekly templates into dated menus",
	}
	cmd.AddCommand(newPlanApplyCmd(opts), newPlanPreviewCmd(opts), newPlanTemplatesCmd(opts))
	return cmd
}

func newPlanApplyCmd(opts *globalOptions) *cobra.Command {
	var (
		template string
		start    string
		days     int
		week     bool
		month    bool
		children int
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create menus from a template, skipping dates that already have one",
		Long: `Apply expands a weekly template over consecutive dates starting at --start.
Each date takes the template's day for its weekday. Dates with an existing
menu are skipped. Products the planned days need beyond current stock are
reported and sent to the configured shortage roles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if week && month {
				return errors.New("--week and --month are mutually exclusive")
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				tmpl, err := resolveTemplate(ctx, a.svc.Planning, template)
				if err != nil {
					return err
				}
				from, err := parseDay(start, a.clock)
				if err != nil {
					return err
				}

				var res *planning.ApplyResult
				switch {
				case week:
					res, err = a.svc.Planning.ApplyToWeek(ctx, tmpl.ID, from, children)
				case month:
					res, err = a.svc.Planning.ApplyToMonth(ctx, tmpl.ID, from, children)
				default:
					res, err = a.svc.Planning.ApplyToPeriod(ctx, tmpl.ID, from, days, children)
				}
				if err != nil {
					return err
				}
				printApplyResult(cmd.OutOrStdout(), tmpl, res)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "Template ID or name")
	cmd.Flags().StringVarP(&start, "start", "s", "today", "First date (YYYY-MM-DD, today or tomorrow)")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to plan")
	cmd.Flags().BoolVar(&week, "week", false, "Plan seven days")
	cmd.Flags().BoolVar(&month, "month", false, "Plan to the end of the start date's month")
	cmd.Flags().IntVarP(&children, "children", "n", 0, "Child count (default: the template's)")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func newPlanPreviewCmd(opts *globalOptions) *cobra.Command {
	var (
		template string
		start    string
		days     int
		children int
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Forecast the products a template needs without creating menus",
		Long: `Preview sums a template's demand over --days. With --start each day uses
its calendar weekday; without it the days cycle from Monday.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				tmpl, err := resolveTemplate(ctx, a.svc.Planning, template)
				if err != nil {
					return err
				}

				var fc *planning.Forecast
				if start == "" {
					fc, err = a.svc.Planning.CalculateRequiredProducts(ctx, tmpl.ID, days, children)
				} else {
					from, perr := parseDay(start, a.clock)
					if perr != nil {
						return perr
					}
					fc, err = a.svc.Planning.CalculateRequiredProductsFrom(ctx, tmpl.ID, from, days, children)
				}
				if err != nil {
					return err
				}
				printForecast(cmd.OutOrStdout(), tmpl, fc)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "Template ID or name")
	cmd.Flags().StringVarP(&start, "start", "s", "", "First date; empty cycles from Monday")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to forecast")
	cmd.Flags().IntVarP(&children, "children", "n", 0, "Child count (default: the template's)")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func newPlanTemplatesCmd(opts *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List weekly templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				templates, err := a.svc.Planning.ListTemplates(ctx, !all)
				if err != nil {
					return err
				}
				printTemplates(cmd.OutOrStdout(), templates)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include inactive templates")
	return cmd
}

// resolveTemplate finds a template by ID first, then by case-insensitive name.
func resolveTemplate(ctx context.Context, engine *planning.Engine, ref string) (*models.WeeklyMenuTemplate, error) {
	tmpl, err := engine.GetTemplate(ctx, ref)
	if err == nil {
		return tmpl, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	templates, err := engine.ListTemplates(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		if strings.EqualFold(t.Name, ref) {
			return t, nil
		}
	}
	return nil, models.NotFoundError("template", ref)
}

// ============================================================================
// REPORTS
// ============================================================================

func newReportCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Consumption and cost reports",
	}
	cmd.AddCommand(newReportPeriodCmd(opts), newReportDayCmd(opts), newReportProductCmd(opts))
	return cmd
}

func newReportPeriodCmd(opts *globalOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "period",
		Short: "Summarize consumption of menus dated between --from and --to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				start, end, err := parseRange(from, to, a.clock)
				if err != nil {
					return err
				}
				summary, err := a.svc.Reporting.PeriodSummary(ctx, start, end)
				if err != nil {
					return err
				}
				printPeriodSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First date (default: first of this month)")
	cmd.Flags().StringVar(&to, "to", "today", "Last date, inclusive")
	return cmd
}

func newReportDayCmd(opts *globalOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Break down one day's consumption by meal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				day, err := parseDay(date, a.clock)
				if err != nil {
					return err
				}
				breakdown, err := a.svc.Reporting.DailyBreakdown(ctx, day)
				if err != nil {
					return err
				}
				printDayBreakdown(cmd.OutOrStdout(), breakdown)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "today", "Menu date")
	return cmd
}

func newReportProductCmd(opts *globalOptions) *cobra.Command {
	var product, from, to string

	cmd := &cobra.Command{
		Use:   "product",
		Short: "Show one product's consumption and purchases over a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				start, end, err := parseRange(from, to, a.clock)
				if err != nil {
					return err
				}
				p, err := a.svc.Inventory.GetProduct(ctx, product)
				if errors.Is(err, models.ErrNotFound) {
					p, err = a.svc.Inventory.GetProductByName(ctx, product)
				}
				if err != nil {
					return err
				}
				history, err := a.svc.Reporting.ProductHistory(ctx, p.ID, start, end)
				if err != nil {
					return err
				}
				printProductHistory(cmd.OutOrStdout(), history)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&product, "product", "p", "", "Product ID or name")
	cmd.Flags().StringVar(&from, "from", "", "First date (default: first of this month)")
	cmd.Flags().StringVar(&to, "to", "today", "Last date, inclusive")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func newDashboardCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print stock alerts, top consumed products and today's menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				d, err := a.svc.Reporting.Dashboard(ctx, a.clock.Now())
				if err != nil {
					return err
				}
				printDashboard(cmd.OutOrStdout(), a.cfg.Daycare.Name, d)
				return nil
			})
		},
	}
}

// ============================================================================
// CONSOLE
// ============================================================================

func newConsoleCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Open the interactive kitchen console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				tui.Version = Version
				tui.BuildTime = BuildTime

				slog.Info("starting console", "daycare", a.cfg.Daycare.Name)
				if err := tui.Run(ctx, a.svc, a.cfg); err != nil {
					return fmt.Errorf("console error: %w", err)
				}
				slog.Info("console closed")
				return nil
			})
		},
	}
}

// ============================================================================
// ARGUMENTS
// ============================================================================

// parseDay accepts YYYY-MM-DD, "today" and "tomorrow" relative to clock.
func parseDay(s string, clock util.Clock) (time.Time, error) {
	today := models.DateOnly(clock.Now())
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}
	return models.ParseDate(s)
}

func parseSlot(date, meal string, clock util.Clock) (time.Time, models.MealType, error) {
	day, err := parseDay(date, clock)
	if err != nil {
		return time.Time{}, "", err
	}
	mt, err := models.ParseMealType(meal)
	if err != nil {
		return time.Time{}, "", err
	}
	return day, mt, nil
}

// parseRange defaults an empty from to the first of to's month.
func parseRange(from, to string, clock util.Clock) (time.Time, time.Time, error) {
	end, err := parseDay(to, clock)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from == "" {
		return time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC), end, nil
	}
	start, err := parseDay(from, clock)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
