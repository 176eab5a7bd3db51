package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Panel renders a titled, bordered box width cells wide.
func (t *Theme) Panel(title, content string, width int) string {
	box := t.Box.Width(max(width-2, 10)).Render(content)
	if title == "" {
		return box
	}
	return t.Subtitle.Render(" "+title) + "\n" + box
}

// SideBySide renders two blocks in columns, stacking them when they do not fit.
func SideBySide(left, right string, totalWidth, gap int) string {
	leftWidth := lipgloss.Width(left)
	if leftWidth+lipgloss.Width(right)+gap > totalWidth {
		return left + "\n\n" + right
	}
	spacer := strings.Repeat(" ", max(gap, totalWidth/2-leftWidth))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, spacer, right)
}

// ContentWidth returns the usable content width, capped between min and max.
func ContentWidth(termWidth, minWidth, maxWidth int) int {
	w := max(termWidth, minWidth)
	if maxWidth > 0 && w > maxWidth {
		w = maxWidth
	}
	return w
}

// ContentHeight returns the height left after chromeLines of header and footer.
func ContentHeight(termHeight, chromeLines int) int {
	return max(termHeight-chromeLines, 5)
}
