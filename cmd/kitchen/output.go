package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sunnyside/kitchen/internal/database"
	"github.com/sunnyside/kitchen/internal/database/seed"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/services/menus"
	"github.com/sunnyside/kitchen/internal/services/planning"
	"github.com/sunnyside/kitchen/internal/services/recipes"
	"github.com/sunnyside/kitchen/internal/services/reporting"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printMigrations(w io.Writer, result *database.MigrationResult, status []database.Migration) {
	fmt.Fprintf(w, "schema version %d, %d applied this run\n", result.TargetVersion, len(result.Applied))

	tw := newTable(w)
	fmt.Fprintln(tw, "VERSION\tDESCRIPTION\tAPPLIED\t")
	for _, m := range status {
		applied := "pending"
		if m.Applied {
			applied = m.AppliedAt.Format("2006-01-02 15:04")
			if m.Modified {
				applied += " (modified)"
			}
		}
		fmt.Fprintf(tw, "%03d\t%s\t%s\t\n", m.Version, m.Description, applied)
	}
	tw.Flush()
}

func printSeedResult(w io.Writer, res *seed.Result) {
	fmt.Fprintf(w, "products:  %d created, %d skipped\n", res.ProductsCreated, res.ProductsSkipped)
	fmt.Fprintf(w, "dishes:    %d created, %d skipped\n", res.DishesCreated, res.DishesSkipped)
	fmt.Fprintf(w, "templates: %d created, %d skipped\n", res.TemplatesCreated, res.TemplatesSkipped)
}

func printDiagnostics(w io.Writer, cfgPath string, d *database.Diagnostics) {
	if cfgPath == "" {
		cfgPath = "(defaults)"
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "config\t%s\t\n", cfgPath)
	fmt.Fprintf(tw, "database\t%s\t\n", d.Path)
	if !d.Exists {
		fmt.Fprintf(tw, "status\tnot created yet\t\n")
	} else {
		fmt.Fprintf(tw, "size\t%d bytes (wal %d)\t\n", d.SizeBytes, d.WALSizeBytes)
		fmt.Fprintf(tw, "schema\tversion %d\t\n", d.SchemaVersion)
		fmt.Fprintf(tw, "journal\t%s\t\n", d.JournalMode)
		fmt.Fprintf(tw, "check\t%s\t\n", d.QuickCheck)
	}
	latest := d.LatestBackup
	if latest == "" {
		latest = "none"
	}
	fmt.Fprintf(tw, "backups\t%d, latest %s\t\n", d.Backups, latest)
	tw.Flush()
}

func printServeResult(w io.Writer, mt models.MealType, children int, res *menus.ServeResult) {
	fmt.Fprintf(w, "served %s on %s for %d children\n", mt, res.Menu.DateKey(), children)

	tw := newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tDEDUCTED\t")
	for _, l := range res.Logs {
		fmt.Fprintf(tw, "%s\t%s %s\t\n", l.ProductName, l.Quantity, l.Unit)
	}
	tw.Flush()

	printMissing(w, res.MissingProducts)
}

func printMissing(w io.Writer, missing []recipes.MissingProduct) {
	for _, m := range missing {
		fmt.Fprintf(w, "warning: %s references unknown product %s\n", m.DishName, m.ProductID)
	}
}

func printTemplates(w io.Writer, templates []*models.WeeklyMenuTemplate) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tCHILDREN\tACTIVE\tDISHES\t")
	for _, t := range templates {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%d\t\n", t.ID, t.Name, t.DefaultChildCount, t.IsActive, len(t.AllDishIDs()))
	}
	tw.Flush()
}

func printApplyResult(w io.Writer, tmpl *models.WeeklyMenuTemplate, res *planning.ApplyResult) {
	end := res.Start.AddDate(0, 0, res.NumDays-1)
	fmt.Fprintf(w, "%s: %s to %s for %d children\n", tmpl.Name,
		res.Start.Format(models.DateLayout), end.Format(models.DateLayout), res.ChildCount)
	fmt.Fprintf(w, "created %d, skipped %d, failed %d\n", len(res.Created), len(res.Skipped), len(res.Issues))

	for _, issue := range res.Issues {
		fmt.Fprintf(w, "  %s: %v\n", issue.Date.Format(models.DateLayout), issue.Err)
	}

	if !res.HasShortages() {
		fmt.Fprintln(w, "stock covers every planned day")
		return
	}

	fmt.Fprintln(w, "shortages:")
	tw := newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tREQUIRED\tAVAILABLE\tSHORT\tDAYS\t")
	for _, s := range res.Shortages {
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%d\t\n", s.ProductName, s.Required, s.Unit, s.Available, s.Shortage, s.Days)
	}
	tw.Flush()

	switch {
	case res.NotifyError != nil:
		fmt.Fprintf(w, "notification failed: %v\n", res.NotifyError)
	case res.Notified:
		fmt.Fprintln(w, "staff notified")
	}
}

func printForecast(w io.Writer, tmpl *models.WeeklyMenuTemplate, fc *planning.Forecast) {
	fmt.Fprintf(w, "%s: %d days for %d children\n", tmpl.Name, fc.Days, fc.ChildCount)

	tw := newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tREQUIRED\tAVAILABLE\tSHORT\tMEALS\t")
	for _, p := range fc.Products {
		meals := make([]string, len(p.MealTypes))
		for i, mt := range p.MealTypes {
			meals[i] = mt.String()
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\t\n",
			p.ProductName, p.Required, p.Unit, p.Available, p.Shortage(), strings.Join(meals, ","))
	}
	tw.Flush()

	printMissing(w, fc.MissingProducts)
	for _, id := range fc.MissingDishes {
		fmt.Fprintf(w, "warning: unknown dish %s\n", id)
	}
}

func printPeriodSummary(w io.Writer, s *reporting.PeriodSummary) {
	fmt.Fprintf(w, "%s to %s: %d meals served, total cost %s\n",
		s.Start.Format(models.DateLayout), s.End.Format(models.DateLayout), s.MealsServed, s.TotalCost.StringFixed(2))

	tw := newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tCATEGORY\tQUANTITY\tCOST\t")
	for _, p := range s.Products {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t\n", p.ProductName, p.Category, p.Quantity, p.Unit, p.Cost.StringFixed(2))
	}
	tw.Flush()

	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "MEAL\tSERVED\tCHILDREN\tCOST\t")
	for _, m := range s.Meals {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t\n", m.MealType, m.Served, m.Children, m.Cost.StringFixed(2))
	}
	tw.Flush()
}

func printDayBreakdown(w io.Writer, d *reporting.DayBreakdown) {
	fmt.Fprintf(w, "%s: total cost %s\n", d.Menu.DateKey(), d.TotalCost.StringFixed(2))

	for _, m := range d.Meals {
		state := "planned"
		if m.Served != nil {
			state = fmt.Sprintf("served %s for %d", m.Served.At.Format("15:04"), m.Served.ChildCount)
		}
		fmt.Fprintf(w, "\n%s (%d dishes, %s) %s\n", m.MealType, len(m.DishIDs), state, m.Cost.StringFixed(2))

		tw := newTable(w)
		for _, e := range m.Entries {
			fmt.Fprintf(tw, "  %s\t%s %s\t%s\t\n", e.ProductName, e.Quantity, e.Unit, e.Cost().StringFixed(2))
		}
		tw.Flush()
	}
}

func printProductHistory(w io.Writer, h *reporting.ProductHistory) {
	p := h.Product
	fmt.Fprintf(w, "%s (%s): %s to %s\n", p.Name, p.Unit,
		h.Start.Format(models.DateLayout), h.End.Format(models.DateLayout))
	fmt.Fprintf(w, "consumed  %s (%s)\n", h.Consumed, h.ConsumedCost.StringFixed(2))
	fmt.Fprintf(w, "purchased %s (%s)\n", h.Purchased, h.PurchasedCost.StringFixed(2))
	fmt.Fprintf(w, "net       %s, stock now %s\n", h.NetChange(), p.StockQuantity)
}

func printDashboard(w io.Writer, daycare string, d *reporting.Dashboard) {
	fmt.Fprintf(w, "%s kitchen, %s\n", daycare, d.GeneratedAt.Format("2006-01-02 15:04"))

	printProducts(w, "low stock", d.LowStock, func(p *models.Product) string {
		return fmt.Sprintf("%s %s (min %s)", p.StockQuantity, p.Unit, p.MinStockLevel)
	})
	printProducts(w, "expiring soon", d.Expiring, func(p *models.Product) string {
		return fmt.Sprintf("in %d days", p.DaysUntilExpiration(d.GeneratedAt))
	})
	printProducts(w, "expired", d.Expired, func(p *models.Product) string {
		return p.ExpirationDate.Format(models.DateLayout)
	})

	fmt.Fprintf(w, "\ntop consumed since %s (cost %s)\n", d.WindowStart.Format(models.DateLayout), d.WindowCost.StringFixed(2))
	tw := newTable(w)
	for _, t := range d.TopConsumed {
		fmt.Fprintf(tw, "  %s\t%s %s\t%s\t\n", t.ProductName, t.Quantity, t.Unit, t.Cost.StringFixed(2))
	}
	tw.Flush()

	if d.TodaysMenu == nil {
		fmt.Fprintln(w, "\nno menu planned today")
		return
	}
	fmt.Fprintf(w, "\ntoday's menu: %d of %d meals served\n", d.ServedToday, len(models.MealTypes))
}

func printProducts(w io.Writer, title string, products []*models.Product, detail func(*models.Product) string) {
	fmt.Fprintf(w, "\n%s: %d\n", title, len(products))
	tw := newTable(w)
	for _, p := range products {
		fmt.Fprintf(tw, "  %s\t%s\t\n", p.Name, detail(p))
	}
	tw.Flush()
}
