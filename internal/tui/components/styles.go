package components

import "github.com/charmbracelet/lipgloss"

// Styles is the palette shared by tables, inputs and views.
type Styles struct {
	Title    lipgloss.Style
	Section  lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Accent   lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Success  lipgloss.Style
	Header   lipgloss.Style
	Row      lipgloss.Style
	RowAlt   lipgloss.Style
	Selected lipgloss.Style
	Border   lipgloss.Style
}

// NewStyles derives a palette from a handful of colors.
func NewStyles(primary, secondary, accent, background, muted, errorColor, warningColor, successColor lipgloss.Color) Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Foreground(accent).Bold(true),
		Section:  lipgloss.NewStyle().Foreground(primary).Bold(true),
		Label:    lipgloss.NewStyle().Foreground(secondary),
		Value:    lipgloss.NewStyle().Foreground(primary),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Accent:   lipgloss.NewStyle().Foreground(accent),
		Error:    lipgloss.NewStyle().Foreground(errorColor),
		Warning:  lipgloss.NewStyle().Foreground(warningColor),
		Success:  lipgloss.NewStyle().Foreground(successColor),
		Header:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		Row:      lipgloss.NewStyle().Foreground(primary),
		RowAlt:   lipgloss.NewStyle().Foreground(secondary),
		Selected: lipgloss.NewStyle().Foreground(background).Background(primary),
		Border:   lipgloss.NewStyle().Foreground(secondary),
	}
}

// DefaultStyles is the garden palette.
func DefaultStyles() Styles {
	return NewStyles(
		lipgloss.Color("#A7C957"),
		lipgloss.Color("#6A994E"),
		lipgloss.Color("#F2E8CF"),
		lipgloss.Color("#1B2E1B"),
		lipgloss.Color("#52734D"),
		lipgloss.Color("#E76F51"),
		lipgloss.Color("#F4A261"),
		lipgloss.Color("#A7C957"),
	)
}
