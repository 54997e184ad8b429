package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cxburn/internal/tui/theme"
)

// RenderStatusBar renders key hints on the left and status on the right.
func RenderStatusBar(width int, hints, status string) string {
	t := theme.Active
	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)

	left := " " + hints
	right := status + " "
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return style.Render(left + strings.Repeat(" ", gap) + right)
}
