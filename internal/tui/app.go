package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sunnyside/kitchen/internal/config"
	"github.com/sunnyside/kitchen/internal/kitchen"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/services/reporting"
	"github.com/sunnyside/kitchen/internal/tui/components"
	invviews "github.com/sunnyside/kitchen/internal/tui/views/inventory"
	menuviews "github.com/sunnyside/kitchen/internal/tui/views/menu"
	"github.com/sunnyside/kitchen/internal/util"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// MaxContentWidth is the maximum width for content display
const MaxContentWidth = 120

// chromeLines is the height of header, alert bar and footer together.
const chromeLines = 6

// Module represents a view module in the application.
type Module string

const (
	ModuleDashboard Module = "dashboard"
	ModuleInventory Module = "inventory"
	ModuleMenu      Module = "menu"
	ModuleHelp      Module = "help"
)

// App is the main Bubble Tea application model.
type App struct {
	ctx    context.Context
	svc    *kitchen.Services
	config *config.Config
	clock  util.Clock

	inventoryView *invviews.View
	menuView      *menuviews.View
	dashboard     *reporting.Dashboard
	dashboardErr  error

	purchaseForm *invviews.PurchaseForm
	serveForm    *components.Form

	theme       *Theme
	keys        KeyMap
	width       int
	height      int
	ready       bool
	quitting    bool
	showConfirm bool

	currentModule  Module
	previousModule Module
	showDetail     bool

	alerts []Alert
}

// Alert represents a console notice.
type Alert struct {
	Level   AlertLevel
	Message string
	Time    time.Time
}

// AlertLevel indicates the severity of an alert.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertCritical
)

// tickMsg is sent periodically to update the UI.
type tickMsg time.Time

type dashboardMsg struct {
	dashboard *reporting.Dashboard
	err       error
}

type purchaseSavedMsg struct {
	product string
	record  *models.PurchaseRecord
	err     error
}

// New creates a console over svc. Blocking calls run under ctx.
func New(ctx context.Context, svc *kitchen.Services, cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	theme := NewTheme(cfg.Display.ColorScheme)
	clock := svc.Clock()

	inventoryView := invviews.New(svc.Inventory, theme.Styles)
	inventoryView.SetNow(clock.Now())

	return &App{
		ctx:           ctx,
		svc:           svc,
		config:        cfg,
		clock:         clock,
		inventoryView: inventoryView,
		menuView:      menuviews.New(svc.Menus, svc.Recipes, theme.Styles, clock.Now()),
		theme:         theme,
		keys:          DefaultKeyMap(),
		currentModule: ModuleDashboard,
		alerts:        []Alert{},
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(),
		a.loadDashboard(),
		a.menuView.Load(a.ctx),
	)
}

// tickCmd returns a command that sends tick messages.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) loadDashboard() tea.Cmd {
	now := a.clock.Now()
	return func() tea.Msg {
		d, err := a.svc.Reporting.Dashboard(a.ctx, now)
		return dashboardMsg{dashboard: d, err: err}
	}
}

// refreshStock reloads everything that shows stock levels.
func (a *App) refreshStock() tea.Cmd {
	return tea.Batch(a.loadDashboard(), a.inventoryView.Load(a.ctx))
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.updateViewDimensions()
		return a, nil

	case tickMsg:
		a.inventoryView.SetNow(a.clock.Now())
		return a, tickCmd()

	case dashboardMsg:
		a.applyDashboard(msg)
		return a, nil

	case invviews.LoadedMsg:
		a.inventoryView.Apply(msg)
		if msg.Err != nil {
			a.AddAlert(AlertWarning, "Failed to load inventory: "+msg.Err.Error())
		}
		return a, nil

	case menuviews.LoadedMsg:
		a.menuView.Apply(msg)
		if msg.Err != nil {
			a.AddAlert(AlertWarning, "Failed to load menu: "+msg.Err.Error())
		}
		return a, nil

	case menuviews.ServedMsg:
		return a, a.applyServed(msg)

	case menuviews.CancelledMsg:
		if msg.Err != nil {
			a.AddAlert(AlertWarning, fmt.Sprintf("Cannot cancel %s: %v", msg.Meal, msg.Err))
			return a, a.menuView.Load(a.ctx)
		}
		a.menuView.SetMenu(msg.Menu)
		a.AddAlert(AlertInfo, fmt.Sprintf("Cancelled %s, restored %d products", msg.Meal, msg.Restored))
		return a, a.refreshStock()

	case purchaseSavedMsg:
		if msg.err != nil {
			if a.purchaseForm != nil {
				a.purchaseForm.SetError(msg.err.Error())
				a.purchaseForm.Reopen()
			}
			return a, nil
		}
		a.purchaseForm = nil
		a.AddAlert(AlertInfo, fmt.Sprintf("Received %s %s", msg.record.Quantity, msg.product))
		return a, a.refreshStock()
	}

	return a, nil
}

func (a *App) applyDashboard(msg dashboardMsg) {
	a.dashboardErr = msg.err
	if msg.err != nil {
		a.AddAlert(AlertWarning, "Failed to load dashboard: "+msg.err.Error())
		return
	}
	a.dashboard = msg.dashboard

	if n := len(msg.dashboard.Expired); n > 0 {
		a.AddAlert(AlertCritical, fmt.Sprintf("%d products past their expiration date", n))
	}
	if n := len(msg.dashboard.LowStock); n > 0 {
		a.AddAlert(AlertWarning, fmt.Sprintf("%d products below minimum stock", n))
	}
}

func (a *App) applyServed(msg menuviews.ServedMsg) tea.Cmd {
	if msg.Err != nil {
		level := AlertWarning
		if errors.Is(msg.Err, models.ErrInsufficientStock) {
			level = AlertCritical
		}
		a.AddAlert(level, fmt.Sprintf("Cannot serve %s for %d children: %v", msg.Meal, msg.Children, msg.Err))
		return a.menuView.Load(a.ctx)
	}

	a.menuView.SetMenu(msg.Result.Menu)
	for _, m := range msg.Result.MissingProducts {
		a.AddAlert(AlertWarning, fmt.Sprintf("%s references unknown product %s", m.DishName, m.ProductID))
	}
	a.AddAlert(AlertInfo, fmt.Sprintf("Served %s for %d children, %d products deducted",
		msg.Meal, msg.Children, len(msg.Result.Logs)))
	return a.refreshStock()
}

// updateViewDimensions fits the views to the terminal.
func (a *App) updateViewDimensions() {
	a.inventoryView.SetSize(ContentWidth(a.width, 40, MaxContentWidth), ContentHeight(a.height, chromeLines))
}

// handleKeyPress processes key press events.
func (a *App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modal takes priority
	if a.showConfirm {
		switch msg.String() {
		case "y", "Y", "enter":
			a.quitting = true
			return a, tea.Quit
		case "n", "N", "esc":
			a.showConfirm = false
		}
		return a, nil
	}

	// Forms take every key before global bindings
	if a.serveForm != nil {
		return a.handleServeFormKeys(msg)
	}
	if a.purchaseForm != nil {
		return a.handlePurchaseFormKeys(msg)
	}

	if a.keys.IsQuit(msg) {
		a.showConfirm = true
		return a, nil
	}

	if module := a.keys.ModuleFor(msg); module != "" {
		return a, a.switchTo(module)
	}

	if a.keys.Back.Matches(msg) {
		if a.showDetail {
			a.showDetail = false
			return a, nil
		}
		if a.currentModule == ModuleHelp && a.previousModule != "" {
			a.currentModule = a.previousModule
			a.previousModule = ""
		}
		return a, nil
	}

	switch a.currentModule {
	case ModuleInventory:
		return a.handleInventoryKeys(msg)
	case ModuleMenu:
		return a.handleMenuKeys(msg)
	case ModuleDashboard:
		if a.keys.Refresh.Matches(msg) {
			return a, a.loadDashboard()
		}
	}

	return a, nil
}

func (a *App) switchTo(module Module) tea.Cmd {
	a.showDetail = false
	if module == ModuleHelp {
		if a.currentModule != ModuleHelp {
			a.previousModule = a.currentModule
		}
		a.currentModule = ModuleHelp
		return nil
	}

	a.currentModule = module
	switch module {
	case ModuleDashboard:
		return a.loadDashboard()
	case ModuleInventory:
		return a.inventoryView.Load(a.ctx)
	case ModuleMenu:
		return a.menuView.Load(a.ctx)
	}
	return nil
}

// handleInventoryKeys handles key presses in the inventory module.
func (a *App) handleInventoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.keys.Purchase.Matches(msg) {
		if p := a.inventoryView.Selected(); p != nil {
			a.purchaseForm = invviews.NewPurchaseForm(p, a.theme.Styles)
		}
		return a, nil
	}

	if a.showDetail {
		return a, nil
	}

	switch {
	case a.keys.Up.Matches(msg):
		a.inventoryView.MoveUp()
	case a.keys.Down.Matches(msg):
		a.inventoryView.MoveDown()
	case a.keys.Select.Matches(msg):
		a.showDetail = a.inventoryView.Selected() != nil
	case a.keys.PageUp.Matches(msg):
		if a.inventoryView.PrevPage() {
			return a, a.inventoryView.Load(a.ctx)
		}
	case a.keys.PageDown.Matches(msg):
		if a.inventoryView.NextPage() {
			return a, a.inventoryView.Load(a.ctx)
		}
	case a.keys.Category.Matches(msg):
		a.inventoryView.CycleCategory()
		return a, a.inventoryView.Load(a.ctx)
	case a.keys.Refresh.Matches(msg):
		return a, a.inventoryView.Load(a.ctx)
	}
	return a, nil
}

// handleMenuKeys handles key presses in the menu module.
func (a *App) handleMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case a.keys.Up.Matches(msg):
		a.menuView.MoveUp()
	case a.keys.Down.Matches(msg):
		a.menuView.MoveDown()
	case a.keys.PrevDay.Matches(msg):
		a.menuView.ShiftDays(-1)
		return a, a.menuView.Load(a.ctx)
	case a.keys.NextDay.Matches(msg):
		a.menuView.ShiftDays(1)
		return a, a.menuView.Load(a.ctx)
	case a.keys.Today.Matches(msg):
		a.menuView.SetDate(a.clock.Now())
		return a, a.menuView.Load(a.ctx)
	case a.keys.Refresh.Matches(msg):
		return a, a.menuView.Load(a.ctx)
	case a.keys.Serve.Matches(msg):
		if !a.menuView.CanServe() {
			a.AddAlert(AlertWarning, fmt.Sprintf("Nothing to serve for %s", a.menuView.SelectedMeal()))
			return a, nil
		}
		a.serveForm = a.menuView.NewServeForm(a.menuView.DefaultChildren(a.config.Daycare.DefaultChildCount))
	case a.keys.Cancel.Matches(msg):
		if !a.menuView.CanCancel() {
			a.AddAlert(AlertWarning, fmt.Sprintf("%s has not been served", a.menuView.SelectedMeal()))
			return a, nil
		}
		return a, a.menuView.Cancel(a.ctx)
	}
	return a, nil
}

// handleServeFormKeys drives the child count prompt.
func (a *App) handleServeFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.serveForm.HandleKey(msg.String())

	if a.serveForm.IsCancelled() {
		a.serveForm = nil
		return a, nil
	}
	if !a.serveForm.IsSubmitted() {
		return a, nil
	}

	children, err := menuviews.ParseChildren(a.serveForm)
	if err != nil {
		a.serveForm.SetError(err.Error())
		a.serveForm.Reopen()
		return a, nil
	}
	a.serveForm = nil
	return a, a.menuView.Serve(a.ctx, children)
}

// handlePurchaseFormKeys drives the stock receipt form.
func (a *App) handlePurchaseFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.purchaseForm.HandleKey(msg.String())

	if a.purchaseForm.IsCancelled() {
		a.purchaseForm = nil
		return a, nil
	}
	if !a.purchaseForm.IsSubmitted() {
		return a, nil
	}

	input, err := a.purchaseForm.Input(a.clock.Now())
	if err != nil {
		a.purchaseForm.SetError(err.Error())
		a.purchaseForm.Reopen()
		return a, nil
	}
	product := a.purchaseForm.Product().Name
	return a, func() tea.Msg {
		rec, err := a.svc.Inventory.RecordPurchase(a.ctx, input)
		return purchaseSavedMsg{product: product, record: rec, err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initializing..."
	}

	if a.quitting {
		return a.theme.Title.Render(a.config.Daycare.Name + " kitchen console closed.")
	}

	var b strings.Builder

	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	b.WriteString(a.renderAlertBar())
	b.WriteString("\n")

	contentHeight := ContentHeight(a.height, chromeLines)
	if a.showConfirm {
		b.WriteString(a.renderConfirmDialog(contentHeight))
	} else {
		b.WriteString(a.renderContent(contentHeight))
	}

	b.WriteString("\n")
	b.WriteString(a.renderFooter())

	return b.String()
}

// renderHeader renders the top header bar.
func (a *App) renderHeader() string {
	title := fmt.Sprintf("%s KITCHEN v%s", strings.ToUpper(a.config.Daycare.Name), Version)
	info := fmt.Sprintf("CAPACITY: %d", a.config.Daycare.Capacity)
	if a.dashboard != nil {
		info = fmt.Sprintf("LOW: %d | EXPIRING: %d | %s", len(a.dashboard.LowStock), len(a.dashboard.Expiring), info)
	}

	spacing := max(a.width-lipgloss.Width(title)-lipgloss.Width(info)-4, 1)
	header := a.theme.Header.Render(title) + strings.Repeat(" ", spacing) + a.theme.Header.Render(info)

	return header + "\n" + a.theme.DrawDoubleLine(a.width)
}

// renderAlertBar renders the clock and the newest alert.
func (a *App) renderAlertBar() string {
	timeStr := a.clock.Now().Format(a.config.Display.DateFormat + " " + a.config.Display.TimeFormat)

	var alertText string
	if len(a.alerts) > 0 {
		alert := a.alerts[0]
		switch alert.Level {
		case AlertCritical:
			alertText = a.theme.AlertCrit.Render("CRITICAL: " + alert.Message)
		case AlertWarning:
			alertText = a.theme.AlertWarn.Render("WARNING: " + alert.Message)
		default:
			alertText = a.theme.Alert.Render("INFO: " + alert.Message)
		}
	} else {
		alertText = a.theme.Muted.Render("Kitchen ready")
	}

	return a.theme.Value.Render(timeStr) + a.theme.StatusDivider.Render() + alertText
}

// renderContent renders the main content area based on current module.
func (a *App) renderContent(height int) string {
	contentWidth := ContentWidth(a.width, 40, MaxContentWidth)

	style := lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Top)

	return style.Render(lipgloss.NewStyle().Width(contentWidth).Render(a.moduleContent(contentWidth)))
}

func (a *App) moduleContent(width int) string {
	switch {
	case a.serveForm != nil:
		return a.serveForm.Render(width)
	case a.purchaseForm != nil:
		return a.purchaseForm.Render(width)
	}

	switch a.currentModule {
	case ModuleInventory:
		if a.showDetail {
			return a.inventoryView.RenderDetail(a.inventoryView.Selected(), width)
		}
		return a.inventoryView.Render(width)
	case ModuleMenu:
		return a.menuView.Render(width)
	case ModuleHelp:
		return a.renderHelp()
	default:
		return a.renderDashboard(width)
	}
}

// renderDashboard renders the kitchen overview.
func (a *App) renderDashboard(width int) string {
	var b strings.Builder

	b.WriteString(a.theme.Title.Render("═══ KITCHEN OVERVIEW ═══"))
	b.WriteString("\n\n")

	switch {
	case a.dashboardErr != nil:
		b.WriteString(a.theme.Error.Render("Error: " + a.dashboardErr.Error()))
		return b.String()
	case a.dashboard == nil:
		b.WriteString(a.theme.Label.Render("Loading..."))
		return b.String()
	}

	d := a.dashboard
	colWidth := max(width/2-2, 30)

	var stock strings.Builder
	a.writeProducts(&stock, "LOW STOCK", d.LowStock, colWidth, func(p *models.Product) string {
		return fmt.Sprintf("%s/%s %s", p.StockQuantity, p.MinStockLevel, p.Unit)
	})
	stock.WriteString("\n")
	a.writeProducts(&stock, "EXPIRING SOON", d.Expiring, colWidth, func(p *models.Product) string {
		return fmt.Sprintf("%d days", p.DaysUntilExpiration(d.GeneratedAt))
	})
	stock.WriteString("\n")
	a.writeProducts(&stock, "EXPIRED", d.Expired, colWidth, func(p *models.Product) string {
		return p.ExpirationDate.Format(models.DateLayout)
	})

	var kitchenCol strings.Builder
	kitchenCol.WriteString(a.theme.Subtitle.Render("TODAY'S MENU"))
	kitchenCol.WriteString("\n")
	if d.TodaysMenu == nil {
		kitchenCol.WriteString(a.theme.Muted.Render("  No menu planned"))
	} else {
		kitchenCol.WriteString(fmt.Sprintf("  %d of %d meals served", d.ServedToday, len(models.MealTypes)))
		for _, mt := range models.MealTypes {
			state := a.theme.Muted.Render("planned")
			if d.TodaysMenu.Meal(mt).IsServed() {
				state = a.theme.Success.Render("served")
			}
			kitchenCol.WriteString(fmt.Sprintf("\n  %s %s", components.PadRight(mt.String(), 10), state))
		}
	}
	kitchenCol.WriteString("\n\n")
	kitchenCol.WriteString(a.theme.Subtitle.Render("TOP CONSUMED SINCE " + d.WindowStart.Format(models.DateLayout)))
	kitchenCol.WriteString("\n")
	if len(d.TopConsumed) == 0 {
		kitchenCol.WriteString(a.theme.Muted.Render("  Nothing served yet"))
	}
	for _, t := range d.TopConsumed {
		name := components.PadRight(components.Truncate(t.ProductName, colWidth-24), colWidth-22)
		kitchenCol.WriteString(fmt.Sprintf("  %s %s %s\n", name,
			components.PadLeft(t.Quantity.String()+" "+t.Unit, 10), components.PadLeft(t.Cost.StringFixed(2), 8)))
	}
	kitchenCol.WriteString("\n")
	kitchenCol.WriteString(a.theme.Label.Render("  Cost: ") + a.theme.Value.Render(d.WindowCost.StringFixed(2)))

	b.WriteString(SideBySide(stock.String(), kitchenCol.String(), width, 4))
	return b.String()
}

func (a *App) writeProducts(b *strings.Builder, title string, products []*models.Product, width int, detail func(*models.Product) string) {
	b.WriteString(a.theme.Subtitle.Render(fmt.Sprintf("%s (%d)", title, len(products))))
	b.WriteString("\n")
	if len(products) == 0 {
		b.WriteString(a.theme.Muted.Render("  none"))
		b.WriteString("\n")
		return
	}
	for _, p := range products {
		name := components.PadRight(components.Truncate(p.Name, width-18), width-16)
		b.WriteString("  " + a.theme.Value.Render(name) + a.theme.Warning.Render(detail(p)) + "\n")
	}
}

// renderHelp renders the help screen.
func (a *App) renderHelp() string {
	var b strings.Builder

	b.WriteString(a.theme.Title.Render("═══ HELP ═══"))
	b.WriteString("\n\n")

	section := func(title string, items [][2]string) {
		b.WriteString(a.theme.Subtitle.Render(title))
		b.WriteString("\n\n")
		for _, item := range items {
			b.WriteString(a.theme.Value.Render(fmt.Sprintf("    %-8s  %s", item[0], item[1])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	section("NAVIGATION", [][2]string{
		{"F1", "Help"},
		{"F2", "Dashboard"},
		{"F3", "Inventory"},
		{"F4", "Daily menu"},
		{"F10", "Quit"},
	})
	section("MENU", [][2]string{
		{"Up/Down", "Select meal"},
		{"s", "Serve meal (deducts stock)"},
		{"x", "Cancel served meal (restores stock)"},
		{"[ ]", "Previous/next day"},
		{"t", "Today"},
	})
	section("INVENTORY", [][2]string{
		{"Enter", "Product details"},
		{"c", "Cycle category"},
		{"p", "Record a purchase"},
		{"PgUp/Dn", "Page navigation"},
	})

	b.WriteString(a.theme.Muted.Render("Press Esc to return"))
	return b.String()
}

// renderConfirmDialog renders the quit confirmation dialog.
func (a *App) renderConfirmDialog(height int) string {
	dialog := a.theme.Box.Render(
		a.theme.Title.Render("CONFIRM EXIT") + "\n\n" +
			a.theme.Base.Render("Close the kitchen console?") + "\n\n" +
			a.theme.Label.Render("[Y]es  [N]o"),
	)

	return lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(dialog)
}

// renderFooter renders the bottom status bar.
func (a *App) renderFooter() string {
	return a.theme.DrawHorizontalLine(a.width) + "\n" + a.theme.Footer.Render(a.keys.StatusBarHelp(a.width))
}

// AddAlert adds a new alert to the display.
func (a *App) AddAlert(level AlertLevel, message string) {
	a.alerts = append([]Alert{{
		Level:   level,
		Message: message,
		Time:    a.clock.Now(),
	}}, a.alerts...)

	// Keep only last 10 alerts
	if len(a.alerts) > 10 {
		a.alerts = a.alerts[:10]
	}
}

// ClearAlerts removes all alerts.
func (a *App) ClearAlerts() {
	a.alerts = []Alert{}
}

// Run starts the console and blocks until it exits or ctx is cancelled.
func Run(ctx context.Context, svc *kitchen.Services, cfg *config.Config) error {
	app := New(ctx, svc, cfg)

	p := tea.NewProgram(app, tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
