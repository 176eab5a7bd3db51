package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ColumnSpec defines a column with proportional or fixed width.
type ColumnSpec struct {
	// MinWidth is the width a weighted column never shrinks below.
	MinWidth int
	// Weight is the proportional share of remaining width.
	Weight float64
	// Fixed overrides Weight when positive.
	Fixed int
	// Priority decides drop order on narrow terminals, lowest first.
	Priority int
}

// CalculateColumnWidths distributes availableWidth among columns by weight.
// Dropped columns get width 0. separator is the width of each column gap.
func CalculateColumnWidths(specs []ColumnSpec, availableWidth int, separator int) []int {
	widths := make([]int, len(specs))
	visible := make([]bool, len(specs))

	totalFixed := 0
	totalWeight := 0.0
	for i, spec := range specs {
		visible[i] = true
		if spec.Fixed > 0 {
			totalFixed += spec.Fixed
		} else {
			totalWeight += spec.Weight
		}
	}
	visibleCount := len(specs)

	remainingFor := func() int {
		gaps := 0
		if visibleCount > 1 {
			gaps = (visibleCount - 1) * separator
		}
		return availableWidth - totalFixed - gaps - 2
	}
	remaining := remainingFor()

	for remaining < 0 && visibleCount > 1 {
		drop := -1
		for i, spec := range specs {
			if visible[i] && (drop < 0 || spec.Priority < specs[drop].Priority) {
				drop = i
			}
		}
		visible[drop] = false
		visibleCount--
		if specs[drop].Fixed > 0 {
			totalFixed -= specs[drop].Fixed
		} else {
			totalWeight -= specs[drop].Weight
		}
		remaining = remainingFor()
	}
	if remaining < 0 {
		remaining = 0
	}

	for i, spec := range specs {
		switch {
		case !visible[i]:
			widths[i] = 0
		case spec.Fixed > 0:
			widths[i] = spec.Fixed
		case totalWeight > 0:
			widths[i] = max(int(float64(remaining)*spec.Weight/totalWeight), spec.MinWidth)
		default:
			widths[i] = spec.MinWidth
		}
	}
	return widths
}

// Truncate shortens s to maxWidth cells, ending with an ellipsis when cut.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	if maxWidth == 1 || len(runes) < maxWidth {
		return string(runes[:min(maxWidth, len(runes))])
	}
	return string(runes[:maxWidth-1]) + "…"
}

// PadRight pads s with spaces to width cells.
func PadRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// PadLeft pads s with leading spaces to width cells.
func PadLeft(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return strings.Repeat(" ", width-w) + s
	}
	return s
}

// Gauge renders value against full as a bar of width cells, colored by fill level.
func Gauge(st Styles, value, full float64, width int) string {
	if full <= 0 {
		full = 1
	}
	ratio := min(max(value/full, 0), 1)

	barWidth := max(width-2, 4)
	filled := int(ratio * float64(barWidth))
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"

	switch {
	case ratio > 0.6:
		return st.Success.Render(bar)
	case ratio > 0.3:
		return st.Warning.Render(bar)
	default:
		return st.Error.Render(bar)
	}
}
