// Package tui provides the kitchen console.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sunnyside/kitchen/internal/config"
	"github.com/sunnyside/kitchen/internal/tui/components"
)

// Theme contains all style definitions for the TUI.
type Theme struct {
	components.Styles

	PrimaryColor   lipgloss.Color
	SecondaryColor lipgloss.Color
	AccentColor    lipgloss.Color

	Base          lipgloss.Style
	Header        lipgloss.Style
	Footer        lipgloss.Style
	Subtitle      lipgloss.Style
	Box           lipgloss.Style
	Alert         lipgloss.Style
	AlertWarn     lipgloss.Style
	AlertCrit     lipgloss.Style
	StatusDivider lipgloss.Style
}

// NewTheme creates a theme for the configured color scheme.
func NewTheme(scheme config.ColorScheme) *Theme {
	switch scheme {
	case config.ColorSchemeCrayon:
		return newCrayonTheme()
	case config.ColorSchemePlain:
		return newPlainTheme()
	default:
		return newGardenTheme()
	}
}

// newGardenTheme is the default: leaf greens on a dark soil background.
func newGardenTheme() *Theme {
	return buildTheme(
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

// newCrayonTheme is a bright primary palette.
func newCrayonTheme() *Theme {
	return buildTheme(
		lipgloss.Color("#4FC3F7"),
		lipgloss.Color("#0288D1"),
		lipgloss.Color("#FFD54F"),
		lipgloss.Color("#0D1B2A"),
		lipgloss.Color("#546E7A"),
		lipgloss.Color("#EF5350"),
		lipgloss.Color("#FFA726"),
		lipgloss.Color("#66BB6A"),
	)
}

// newPlainTheme is monochrome apart from status colors.
func newPlainTheme() *Theme {
	return buildTheme(
		lipgloss.Color("#FFFFFF"),
		lipgloss.Color("#AAAAAA"),
		lipgloss.Color("#FFFFFF"),
		lipgloss.Color("#000000"),
		lipgloss.Color("#666666"),
		lipgloss.Color("#FF4444"),
		lipgloss.Color("#FFAA00"),
		lipgloss.Color("#00CC00"),
	)
}

func buildTheme(primary, secondary, accent, background, muted, errorColor, warningColor, successColor lipgloss.Color) *Theme {
	t := &Theme{
		Styles:         components.NewStyles(primary, secondary, accent, background, muted, errorColor, warningColor, successColor),
		PrimaryColor:   primary,
		SecondaryColor: secondary,
		AccentColor:    accent,
	}

	t.Base = lipgloss.NewStyle().Foreground(primary)

	t.Header = lipgloss.NewStyle().
		Foreground(primary).
		Bold(true).
		Padding(0, 1)

	t.Footer = lipgloss.NewStyle().
		Foreground(secondary).
		Padding(0, 1)

	t.Subtitle = lipgloss.NewStyle().
		Foreground(primary).
		Bold(true)

	t.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondary).
		Padding(0, 1)

	t.Alert = lipgloss.NewStyle().
		Foreground(primary).
		Bold(true)

	t.AlertWarn = lipgloss.NewStyle().
		Foreground(warningColor).
		Bold(true)

	t.AlertCrit = lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	t.StatusDivider = lipgloss.NewStyle().
		Foreground(muted).
		SetString(" │ ")

	return t
}

// DrawHorizontalLine draws a horizontal line.
func (t *Theme) DrawHorizontalLine(width int) string {
	return t.Border.Render(strings.Repeat("─", max(width, 0)))
}

// DrawDoubleLine draws a double horizontal line.
func (t *Theme) DrawDoubleLine(width int) string {
	return t.Value.Render(strings.Repeat("═", max(width, 0)))
}
