package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sunnyside/kitchen/internal/config"
)

func TestContentWidth(t *testing.T) {
	tests := []struct {
		term, min, max int
		expected       int
	}{
		{80, 40, 120, 80},
		{30, 40, 120, 40},
		{200, 40, 120, 120},
		{200, 40, 0, 200},
	}

	for _, tt := range tests {
		if got := ContentWidth(tt.term, tt.min, tt.max); got != tt.expected {
			t.Errorf("ContentWidth(%d, %d, %d) = %d, want %d", tt.term, tt.min, tt.max, got, tt.expected)
		}
	}
}

func TestContentHeight(t *testing.T) {
	tests := []struct {
		term, chrome int
		expected     int
	}{
		{40, 6, 34},
		{10, 6, 5},
		{0, 6, 5},
	}

	for _, tt := range tests {
		if got := ContentHeight(tt.term, tt.chrome); got != tt.expected {
			t.Errorf("ContentHeight(%d, %d) = %d, want %d", tt.term, tt.chrome, got, tt.expected)
		}
	}
}

func TestSideBySide(t *testing.T) {
	left := "left\nblock"
	right := "right"

	t.Run("fits", func(t *testing.T) {
		out := SideBySide(left, right, 40, 4)
		lines := strings.Split(out, "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
		}
		if !strings.Contains(lines[0], "left") || !strings.Contains(lines[0], "right") {
			t.Errorf("expected both blocks on the first line, got %q", lines[0])
		}
		if lipgloss.Width(lines[0]) > 40 {
			t.Errorf("expected width within 40, got %d", lipgloss.Width(lines[0]))
		}
	})

	t.Run("stacks when narrow", func(t *testing.T) {
		out := SideBySide(left, right, 10, 4)
		if out != left+"\n\n"+right {
			t.Errorf("expected stacked blocks, got %q", out)
		}
	})
}

func TestTheme_Panel(t *testing.T) {
	theme := NewTheme(config.ColorSchemePlain)

	out := theme.Panel("STOCK", "Oats 12 kg", 30)
	lines := strings.Split(out, "\n")
	if !strings.Contains(lines[0], "STOCK") {
		t.Errorf("expected title on the first line, got %q", lines[0])
	}
	if !strings.Contains(out, "Oats 12 kg") {
		t.Error("expected content in panel")
	}
	if !strings.Contains(out, "╭") {
		t.Error("expected rounded border")
	}

	if untitled := theme.Panel("", "x", 20); strings.Contains(strings.Split(untitled, "\n")[0], "STOCK") {
		t.Error("expected no title line")
	}
}

func TestNewTheme(t *testing.T) {
	tests := []struct {
		scheme  config.ColorScheme
		primary lipgloss.Color
	}{
		{config.ColorSchemeGarden, "#A7C957"},
		{config.ColorSchemeCrayon, "#4FC3F7"},
		{config.ColorSchemePlain, "#FFFFFF"},
		{"", "#A7C957"},
		{"neon", "#A7C957"},
	}

	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			theme := NewTheme(tt.scheme)
			if theme.PrimaryColor != tt.primary {
				t.Errorf("expected primary %s, got %s", tt.primary, theme.PrimaryColor)
			}
		})
	}
}

func TestTheme_Lines(t *testing.T) {
	theme := NewTheme(config.ColorSchemeGarden)

	if got := lipgloss.Width(theme.DrawHorizontalLine(12)); got != 12 {
		t.Errorf("expected 12 cells, got %d", got)
	}
	if got := lipgloss.Width(theme.DrawDoubleLine(8)); got != 8 {
		t.Errorf("expected 8 cells, got %d", got)
	}
	if theme.DrawDoubleLine(-1) != theme.DrawDoubleLine(0) {
		t.Error("expected negative width treated as zero")
	}
}

func TestKeyMap_ModuleFor(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		msg      tea.KeyMsg
		expected Module
	}{
		{specialKeyMsg(tea.KeyF1), ModuleHelp},
		{keyMsg("?"), ModuleHelp},
		{specialKeyMsg(tea.KeyF2), ModuleDashboard},
		{specialKeyMsg(tea.KeyF3), ModuleInventory},
		{specialKeyMsg(tea.KeyF4), ModuleMenu},
		{keyMsg("s"), ""},
	}

	for _, tt := range tests {
		if got := km.ModuleFor(tt.msg); got != tt.expected {
			t.Errorf("ModuleFor(%q) = %q, want %q", tt.msg.String(), got, tt.expected)
		}
	}
}
