// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column. A column with Weight set grows with the
// terminal when the table is fitted; otherwise Width is fixed.
type Column struct {
	Title    string
	Width    int
	Align    lipgloss.Position
	MinWidth int
	Weight   float64
	Priority int
}

// Table is a scrolling, selectable table.
type Table struct {
	columns     []Column
	widths      []int
	rows        [][]string
	selected    int
	offset      int
	visibleRows int
	focused     bool
	styles      Styles

	currentPage int
	totalPages  int
	totalRows   int
}

// NewTable creates a new table with the given columns.
func NewTable(columns []Column) *Table {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = max(col.Width, col.MinWidth)
	}
	return &Table{
		columns:     columns,
		widths:      widths,
		rows:        [][]string{},
		visibleRows: 10,
		styles:      DefaultStyles(),
	}
}

// SetRows replaces the table data and clamps the selection.
func (t *Table) SetRows(rows [][]string) {
	t.rows = rows
	if t.selected >= len(rows) {
		t.selected = max(len(rows)-1, 0)
	}
	if t.offset > t.selected {
		t.offset = t.selected
	}
}

// SetPagination sets the footer page counters.
func (t *Table) SetPagination(page, totalPages, totalRows int) {
	t.currentPage = page
	t.totalPages = totalPages
	t.totalRows = totalRows
}

// SetVisibleRows sets the number of visible rows.
func (t *Table) SetVisibleRows(n int) {
	t.visibleRows = max(n, 1)
}

// SetStyles sets the table palette.
func (t *Table) SetStyles(s Styles) {
	t.styles = s
}

// Fit recomputes column widths for a terminal width, dropping low-priority columns first.
func (t *Table) Fit(width int) {
	specs := make([]ColumnSpec, len(t.columns))
	for i, col := range t.columns {
		specs[i] = ColumnSpec{MinWidth: col.MinWidth, Weight: col.Weight, Priority: col.Priority}
		if col.Weight == 0 {
			specs[i].Fixed = col.Width
		}
	}
	t.widths = CalculateColumnWidths(specs, width, 3)
}

// Widths returns the current column widths; 0 marks a dropped column.
func (t *Table) Widths() []int {
	return t.widths
}

// Focus sets the table focus state.
func (t *Table) Focus(focused bool) {
	t.focused = focused
}

// Selected returns the currently selected row index.
func (t *Table) Selected() int {
	return t.selected
}

// SelectedRow returns the currently selected row data.
func (t *Table) SelectedRow() []string {
	if t.selected >= 0 && t.selected < len(t.rows) {
		return t.rows[t.selected]
	}
	return nil
}

// MoveUp moves the selection up.
func (t *Table) MoveUp() {
	if t.selected > 0 {
		t.selected--
		if t.selected < t.offset {
			t.offset = t.selected
		}
	}
}

// MoveDown moves the selection down.
func (t *Table) MoveDown() {
	if t.selected < len(t.rows)-1 {
		t.selected++
		if t.selected >= t.offset+t.visibleRows {
			t.offset = t.selected - t.visibleRows + 1
		}
	}
}

// GoToTop goes to the first row.
func (t *Table) GoToTop() {
	t.selected = 0
	t.offset = 0
}

// GoToBottom goes to the last row.
func (t *Table) GoToBottom() {
	if len(t.rows) > 0 {
		t.selected = len(t.rows) - 1
		t.offset = max(t.selected-t.visibleRows+1, 0)
	}
}

// Render renders the table.
func (t *Table) Render() string {
	var b strings.Builder

	totalWidth := 0
	for _, w := range t.widths {
		if w > 0 {
			totalWidth += w + 3
		}
	}

	b.WriteString(t.renderRow(t.headers(), t.styles.Header))
	b.WriteString("\n")
	b.WriteString(t.styles.Border.Render(strings.Repeat("-", totalWidth)))
	b.WriteString("\n")

	end := min(t.offset+t.visibleRows, len(t.rows))
	for i := t.offset; i < end; i++ {
		style := t.styles.Row
		switch {
		case i == t.selected && t.focused:
			style = t.styles.Selected
		case (i-t.offset)%2 == 1:
			style = t.styles.RowAlt
		}
		b.WriteString(t.renderRow(t.rows[i], style))
		b.WriteString("\n")
	}

	if t.totalPages > 0 {
		b.WriteString(t.styles.Border.Render(strings.Repeat("-", totalWidth)))
		b.WriteString("\n")
		b.WriteString(t.styles.Border.Render(fmt.Sprintf("Page %d/%d | %d total", t.currentPage, t.totalPages, t.totalRows)))
	}

	return b.String()
}

func (t *Table) headers() []string {
	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = col.Title
	}
	return headers
}

func (t *Table) renderRow(cells []string, style lipgloss.Style) string {
	var parts []string
	for i, col := range t.columns {
		width := t.widths[i]
		if width == 0 {
			continue
		}

		cell := ""
		if i < len(cells) {
			cell = Truncate(cells[i], width)
		}

		switch col.Align {
		case lipgloss.Right:
			cell = PadLeft(cell, width)
		case lipgloss.Center:
			pad := width - lipgloss.Width(cell)
			cell = strings.Repeat(" ", pad/2) + cell + strings.Repeat(" ", pad-pad/2)
		default:
			cell = PadRight(cell, width)
		}
		parts = append(parts, style.Render(cell))
	}
	return " " + strings.Join(parts, " | ") + " "
}

// Empty returns true if the table has no rows.
func (t *Table) Empty() bool {
	return len(t.rows) == 0
}

// TotalRows returns the row total set by SetPagination.
func (t *Table) TotalRows() int {
	return t.totalRows
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}
