// Package menu provides the daily menu view, where meals are served and cancelled.
package menu

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/services/menus"
	"github.com/sunnyside/kitchen/internal/services/recipes"
	"github.com/sunnyside/kitchen/internal/tui/components"
)

// LoadedMsg carries one day's menu and its dishes. Menu is nil when nothing is planned.
type LoadedMsg struct {
	Date   time.Time
	Menu   *models.DailyMenu
	Dishes map[string]*models.Dish
	Err    error
}

// ServedMsg reports the outcome of serving a meal.
type ServedMsg struct {
	Meal     models.MealType
	Children int
	Result   *menus.ServeResult
	Err      error
}

// CancelledMsg reports the outcome of cancelling a served meal.
type CancelledMsg struct {
	Meal     models.MealType
	Menu     *models.DailyMenu
	Restored int
	Err      error
}

// View shows the four meal slots of one date.
type View struct {
	menus    *menus.Service
	catalog  *recipes.Catalog
	styles   components.Styles
	date     time.Time
	menu     *models.DailyMenu
	dishes   map[string]*models.Dish
	selected int
	loaded   bool
	err      error
}

// New creates the menu view showing date.
func New(menuSvc *menus.Service, catalog *recipes.Catalog, styles components.Styles, date time.Time) *View {
	return &View{
		menus:   menuSvc,
		catalog: catalog,
		styles:  styles,
		date:    models.DateOnly(date),
		dishes:  map[string]*models.Dish{},
	}
}

// Date returns the date on display.
func (v *View) Date() time.Time {
	return v.date
}

// SetDate moves the view to another date and clears the loaded menu.
func (v *View) SetDate(date time.Time) {
	v.date = models.DateOnly(date)
	v.menu = nil
	v.loaded = false
	v.err = nil
}

// ShiftDays moves the view by n days.
func (v *View) ShiftDays(n int) {
	v.SetDate(v.date.AddDate(0, 0, n))
}

// Load fetches the menu for the date on display along with its dishes.
func (v *View) Load(ctx context.Context) tea.Cmd {
	date := v.date
	return func() tea.Msg {
		m, err := v.menus.GetMenuByDate(ctx, date)
		if errors.Is(err, models.ErrNotFound) {
			return LoadedMsg{Date: date}
		}
		if err != nil {
			return LoadedMsg{Date: date, Err: err}
		}
		dishes, err := v.catalog.GetDishes(ctx, nil, m.AllDishIDs())
		return LoadedMsg{Date: date, Menu: m, Dishes: dishes, Err: err}
	}
}

// Apply installs a loaded day. Results for a date no longer on display are dropped.
func (v *View) Apply(msg LoadedMsg) {
	if !msg.Date.Equal(v.date) {
		return
	}
	v.loaded = true
	v.err = msg.Err
	v.menu = msg.Menu
	if msg.Dishes != nil {
		v.dishes = msg.Dishes
	}
}

// SetMenu replaces the displayed menu after a serve or cancel.
func (v *View) SetMenu(m *models.DailyMenu) {
	if m != nil && m.Date.Equal(v.date) {
		v.menu = m
	}
}

// Menu returns the displayed menu, nil when nothing is planned.
func (v *View) Menu() *models.DailyMenu {
	return v.menu
}

// MoveUp selects the previous meal slot.
func (v *View) MoveUp() {
	if v.selected > 0 {
		v.selected--
	}
}

// MoveDown selects the next meal slot.
func (v *View) MoveDown() {
	if v.selected < len(models.MealTypes)-1 {
		v.selected++
	}
}

// SelectedMeal returns the highlighted slot type.
func (v *View) SelectedMeal() models.MealType {
	return models.MealTypes[v.selected]
}

func (v *View) selectedSlot() *models.Meal {
	if v.menu == nil {
		return nil
	}
	return v.menu.Meal(v.SelectedMeal())
}

// CanServe reports whether the selected slot has dishes and is not yet served.
func (v *View) CanServe() bool {
	slot := v.selectedSlot()
	return slot != nil && len(slot.DishIDs) > 0 && !slot.IsServed()
}

// CanCancel reports whether the selected slot has been served.
func (v *View) CanCancel() bool {
	slot := v.selectedSlot()
	return slot != nil && slot.IsServed()
}

// DefaultChildren is the menu's planned head count, or fallback when none is planned.
func (v *View) DefaultChildren(fallback int) int {
	if v.menu != nil && v.menu.TotalChildCount > 0 {
		return v.menu.TotalChildCount
	}
	return fallback
}

// NewServeForm asks for the number of children being served.
func (v *View) NewServeForm(defaultChildren int) *components.Form {
	title := fmt.Sprintf("SERVE %s ON %s", strings.ToUpper(v.SelectedMeal().String()), v.date.Format(models.DateLayout))
	return components.NewForm(title).SetStyles(v.styles).AddField(
		components.NewInput("Children").SetRequired(true).SetNumeric(true).SetMaxLength(4).
			SetValue(strconv.Itoa(defaultChildren)),
	)
}

// ParseChildren reads a child count from a serve form.
func ParseChildren(form *components.Form) (int, error) {
	n, err := strconv.Atoi(form.Field("Children").Value())
	if err != nil || n <= 0 {
		return 0, models.NewValidationError("child_count", "must be a positive whole number")
	}
	return n, nil
}

// Serve serves the selected slot for children.
func (v *View) Serve(ctx context.Context, children int) tea.Cmd {
	menuID := v.menu.ID
	mt := v.SelectedMeal()
	return func() tea.Msg {
		res, err := v.menus.ServeMeal(ctx, menuID, mt, children)
		return ServedMsg{Meal: mt, Children: children, Result: res, Err: err}
	}
}

// Cancel reverses the serving of the selected slot.
func (v *View) Cancel(ctx context.Context) tea.Cmd {
	menuID := v.menu.ID
	mt := v.SelectedMeal()
	restored := len(v.menu.LogsFor(mt))
	return func() tea.Msg {
		m, err := v.menus.CancelMeal(ctx, menuID, mt)
		return CancelledMsg{Meal: mt, Menu: m, Restored: restored, Err: err}
	}
}

// Render renders the day.
func (v *View) Render(width int) string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("=== MENU " + strings.ToUpper(v.date.Format("Monday 2006-01-02")) + " ==="))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	case !v.loaded:
		b.WriteString(v.styles.Label.Render("Loading..."))
		b.WriteString("\n")
	case v.menu == nil:
		b.WriteString(v.styles.Muted.Render("No menu planned for this day."))
		b.WriteString("\n")
	default:
		v.renderMenu(&b)
	}

	b.WriteString("\n")
	if width < 60 {
		b.WriteString(v.styles.Label.Render("s:Serve x:Cancel [/]:Day t:Today"))
	} else {
		b.WriteString(v.styles.Label.Render("Up/Down:Meal  s:Serve  x:Cancel  [/]:Prev/Next day  t:Today  r:Refresh"))
	}
	return b.String()
}

func (v *View) renderMenu(b *strings.Builder) {
	if v.menu.TotalChildCount > 0 {
		b.WriteString(v.styles.Label.Render("Planned for: "))
		b.WriteString(v.styles.Value.Render(fmt.Sprintf("%d children", v.menu.TotalChildCount)))
		b.WriteString("\n")
	}
	if v.menu.Notes != "" {
		b.WriteString(v.styles.Muted.Render(v.menu.Notes))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, mt := range models.MealTypes {
		slot := v.menu.Meal(mt)

		marker := "  "
		name := v.styles.Section.Render(components.PadRight(strings.ToUpper(mt.String()), 10))
		if i == v.selected {
			marker = v.styles.Accent.Render("> ")
			name = v.styles.Selected.Render(components.PadRight(strings.ToUpper(mt.String()), 10))
		}

		var state string
		switch {
		case slot == nil || len(slot.DishIDs) == 0:
			state = v.styles.Muted.Render("nothing planned")
		case slot.IsServed():
			state = v.styles.Success.Render(fmt.Sprintf("SERVED %s for %d children",
				slot.Served.At.Format("15:04"), slot.Served.ChildCount))
		default:
			state = v.styles.Label.Render("planned")
		}
		b.WriteString(marker + name + " " + state + "\n")

		if slot == nil {
			continue
		}
		for _, id := range slot.DishIDs {
			dishName := v.styles.Warning.Render("unknown dish " + id)
			if d, ok := v.dishes[id]; ok {
				dishName = v.styles.Value.Render(d.Name)
			}
			b.WriteString("      " + dishName + "\n")
		}
		if slot.IsServed() {
			for _, l := range v.menu.LogsFor(mt) {
				b.WriteString(v.styles.Muted.Render(fmt.Sprintf("        -%s %s %s", l.Quantity, l.Unit, l.ProductName)))
				b.WriteString("\n")
			}
		}
	}
}
