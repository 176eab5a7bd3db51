// Package inventory provides the product stock views of the kitchen console.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/services/inventory"
	"github.com/sunnyside/kitchen/internal/tui/components"
)

// LoadedMsg carries a page of products back to the view.
type LoadedMsg struct {
	List *models.ProductList
	Err  error
}

// View is the paginated product stock table.
type View struct {
	ledger     *inventory.Ledger
	table      *components.Table
	styles     components.Styles
	products   []*models.Product
	categories []string
	page       models.Pagination
	category   string
	now        time.Time
	loaded     bool
	err        error
}

// New creates the inventory view.
func New(ledger *inventory.Ledger, styles components.Styles) *View {
	table := components.NewTable([]components.Column{
		{Title: "Product", MinWidth: 14, Weight: 2, Priority: 9},
		{Title: "Category", Width: 10, Priority: 4},
		{Title: "Stock", Width: 9, Align: lipgloss.Right, Priority: 8},
		{Title: "Unit", Width: 4, Priority: 7},
		{Title: "Min", Width: 7, Align: lipgloss.Right, Priority: 3},
		{Title: "Price", Width: 7, Align: lipgloss.Right, Priority: 2},
		{Title: "Expires", Width: 10, Priority: 5},
		{Title: "State", Width: 8, Priority: 6},
	})
	table.SetStyles(styles)
	table.SetVisibleRows(20)
	table.Focus(true)

	return &View{
		ledger: ledger,
		table:  table,
		styles: styles,
		page:   models.Pagination{Page: 1, PageSize: 20},
	}
}

// Load fetches the current page with the current category filter.
func (v *View) Load(ctx context.Context) tea.Cmd {
	filter := models.ProductFilter{Category: v.category}
	page := v.page
	return func() tea.Msg {
		list, err := v.ledger.ListProducts(ctx, filter, page)
		return LoadedMsg{List: list, Err: err}
	}
}

// Apply installs a loaded page.
func (v *View) Apply(msg LoadedMsg) {
	v.loaded = true
	v.err = msg.Err
	if msg.Err != nil {
		return
	}

	v.products = msg.List.Products
	if v.category == "" {
		v.learnCategories(v.products)
	}

	rows := make([][]string, len(v.products))
	for i, p := range v.products {
		rows[i] = []string{
			p.Name,
			p.Category,
			p.StockQuantity.String(),
			p.Unit,
			p.MinStockLevel.String(),
			p.PricePerUnit.StringFixed(2),
			v.expiryLabel(p),
			v.stateLabel(p),
		}
	}
	v.table.SetRows(rows)
	v.table.SetPagination(msg.List.Page, msg.List.TotalPages, msg.List.Total)
}

func (v *View) learnCategories(products []*models.Product) {
	seen := make(map[string]bool, len(v.categories))
	for _, c := range v.categories {
		seen[c] = true
	}
	for _, p := range products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			v.categories = append(v.categories, p.Category)
		}
	}
	sort.Strings(v.categories)
}

func (v *View) expiryLabel(p *models.Product) string {
	if p.ExpirationDate == nil {
		return "-"
	}
	switch days := p.DaysUntilExpiration(v.now); {
	case p.IsExpired(v.now):
		return "EXPIRED"
	case days == 0:
		return "TODAY"
	case days < 30:
		return fmt.Sprintf("%dd", days)
	default:
		return p.ExpirationDate.Format(models.DateLayout)
	}
}

func (v *View) stateLabel(p *models.Product) string {
	switch {
	case p.Status != models.ProductStatusActive:
		return string(p.Status)
	case p.IsLowStock():
		return "LOW"
	default:
		return "ok"
	}
}

// SetNow sets the time expiry labels are computed against.
func (v *View) SetNow(t time.Time) {
	v.now = t
}

// SetSize fits the table to the terminal.
func (v *View) SetSize(width, height int) {
	v.table.Fit(width)
	v.table.SetVisibleRows(max(height-8, 5))
}

// CycleCategory moves to the next known category, wrapping back to all products.
func (v *View) CycleCategory() {
	next := ""
	if v.category == "" {
		if len(v.categories) > 0 {
			next = v.categories[0]
		}
	} else {
		for i, c := range v.categories {
			if c == v.category && i+1 < len(v.categories) {
				next = v.categories[i+1]
				break
			}
		}
	}
	v.category = next
	v.page.Page = 1
}

// Category returns the active category filter, empty for all.
func (v *View) Category() string {
	return v.category
}

// NextPage moves to the next page. It reports false on the last page.
func (v *View) NextPage() bool {
	if v.page.Page >= v.page.TotalPages(v.table.TotalRows()) {
		return false
	}
	v.page.Page++
	return true
}

// PrevPage moves to the previous page. It reports false on the first page.
func (v *View) PrevPage() bool {
	if v.page.Page <= 1 {
		return false
	}
	v.page.Page--
	return true
}

// MoveUp moves the selection up.
func (v *View) MoveUp() {
	v.table.MoveUp()
}

// MoveDown moves the selection down.
func (v *View) MoveDown() {
	v.table.MoveDown()
}

// Selected returns the highlighted product.
func (v *View) Selected() *models.Product {
	idx := v.table.Selected()
	if idx >= 0 && idx < len(v.products) {
		return v.products[idx]
	}
	return nil
}

// Render renders the product table.
func (v *View) Render(width int) string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("=== INVENTORY ==="))
	b.WriteString("\n\n")

	if v.category != "" {
		b.WriteString(v.styles.Label.Render("Category: "))
		b.WriteString(v.styles.Value.Render(v.category))
		b.WriteString("\n\n")
	}

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	case !v.loaded:
		b.WriteString(v.styles.Label.Render("Loading..."))
		b.WriteString("\n")
	case v.table.Empty():
		b.WriteString(v.styles.Label.Render("No products found."))
		b.WriteString("\n")
	default:
		b.WriteString(v.table.Render())
	}

	b.WriteString("\n")
	if width < 60 {
		b.WriteString(v.styles.Label.Render("Enter:Info c:Cat p:Buy"))
	} else {
		b.WriteString(v.styles.Label.Render("Up/Down:Select  Enter:Details  c:Category  p:Purchase  PgUp/Dn:Page"))
	}

	return b.String()
}

// RenderDetail renders one product's stock card.
func (v *View) RenderDetail(p *models.Product, width int) string {
	label := v.styles.Label.Width(16)
	if p == nil {
		return label.Render("No product selected")
	}

	var b strings.Builder
	row := func(name, value string) {
		b.WriteString(label.Render(name+":") + " " + value + "\n")
	}

	b.WriteString(v.styles.Title.Render("=== " + strings.ToUpper(p.Name) + " ==="))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Section.Render("STOCK"))
	b.WriteString("\n")
	gauge := components.Gauge(v.styles, p.StockQuantity.InexactFloat64(), p.MaxStockLevel.InexactFloat64(), min(width/3, 30))
	row("On hand", v.styles.Value.Render(p.StockQuantity.String()+" "+p.Unit)+" "+gauge)
	minimum := v.styles.Value.Render(p.MinStockLevel.String())
	if p.IsLowStock() {
		minimum += " " + v.styles.Warning.Render("below minimum")
	}
	row("Minimum", minimum)
	row("Maximum", v.styles.Value.Render(p.MaxStockLevel.String()))
	row("Price", v.styles.Value.Render(p.PricePerUnit.StringFixed(2)+" per "+p.Unit))
	row("Stock value", v.styles.Value.Render(p.StockQuantity.Mul(p.PricePerUnit).StringFixed(2)))
	b.WriteString("\n")

	b.WriteString(v.styles.Section.Render("BATCH"))
	b.WriteString("\n")
	row("Category", v.styles.Value.Render(p.Category))
	row("Status", v.styles.Value.Render(string(p.Status)))
	if p.BatchNumber != nil {
		row("Batch", v.styles.Value.Render(*p.BatchNumber))
	}
	if p.ExpirationDate != nil {
		expires := p.ExpirationDate.Format(models.DateLayout)
		days := p.DaysUntilExpiration(v.now)
		switch {
		case p.IsExpired(v.now):
			expires += " " + v.styles.Error.Render("(EXPIRED)")
		case days < 3:
			expires += " " + v.styles.Error.Render(fmt.Sprintf("(%d days)", days))
		case days < 14:
			expires += " " + v.styles.Warning.Render(fmt.Sprintf("(%d days)", days))
		default:
			expires += " " + v.styles.Muted.Render(fmt.Sprintf("(%d days)", days))
		}
		row("Expires", v.styles.Value.Render(expires))
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Label.Render("Esc:Back  p:Purchase"))
	return b.String()
}
