package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cxburn/internal/tui/theme"
)

// Tab is one view of the dashboard. Key is the shortcut and the first
// letter of Name.
type Tab struct {
	Name string
	Key  rune
}

// Tabs lists the dashboard views in order.
var Tabs = []Tab{
	{Name: "Session", Key: 's'},
	{Name: "Events", Key: 'e'},
}

const tabSep = "  "

func tabLabel(tab Tab, active bool) string {
	if active {
		return tab.Name
	}
	return "[" + string(tab.Key) + "]" + tab.Name[1:]
}

// RenderTabBar renders the tab row with activeIdx highlighted.
func RenderTabBar(activeIdx int) string {
	t := theme.Active
	activeStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		label := tabLabel(tab, i == activeIdx)
		if i == activeIdx {
			parts[i] = activeStyle.Render(label)
		} else {
			parts[i] = inactiveStyle.Render(label)
		}
	}
	return " " + strings.Join(parts, tabSep)
}

// TabIdxByKey returns the tab index for a key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}

// TabAtX maps a mouse column on the tab row to a tab index, or -1.
func TabAtX(x, activeIdx int) int {
	pos := 1 // leading space
	for i, tab := range Tabs {
		w := len(tabLabel(tab, i == activeIdx))
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + len(tabSep)
	}
	return -1
}
