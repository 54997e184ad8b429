package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorBlue      = lipgloss.Color("#4385BE")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	costStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	tokenStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Rule is a row value that renders as a horizontal rule.
var Rule = []string{"---"}

// Border names accepted by Table.Border.
const (
	BorderUnicode = "unicode"
	BorderASCII   = "ascii"
)

type borderChars struct {
	tl, tc, tr, ml, mc, mr, bl, bc, br, v, h string
}

var (
	unicodeBorder = borderChars{"╭", "┬", "╮", "├", "┼", "┤", "╰", "┴", "╯", "│", "─"}
	asciiBorder   = borderChars{"+", "+", "+", "+", "+", "+", "+", "+", "+", "|", "-"}
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title    string
	Headers  []string
	Rows     [][]string
	Widths   []int  // optional column widths, auto-calculated if nil
	Border   string // BorderUnicode (default) or BorderASCII
	NoHeader bool
	Left     []int // columns besides the first that align left
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. The first
// column is left-aligned, the rest right-aligned unless listed in Left.
// A Rule row draws a separator, used before sum rows.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			widths[i] = max(widths[i], lipgloss.Width(h))
		}
		for _, row := range t.Rows {
			if isRule(row) {
				continue
			}
			for i, cell := range row {
				if i < numCols {
					widths[i] = max(widths[i], lipgloss.Width(cell))
				}
			}
		}
	}

	bc := unicodeBorder
	if t.Border == BorderASCII {
		bc = asciiBorder
	}

	line := func(left, mid, right string) string {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range widths {
			b.WriteString(strings.Repeat(bc.h, w+2))
			if i < numCols-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right)
		return dimStyle.Render(b.String()) + "\n"
	}

	var b strings.Builder

	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	b.WriteString(line(bc.tl, bc.tc, bc.tr))

	if len(t.Headers) > 0 && !t.NoHeader {
		b.WriteString(dimStyle.Render(bc.v))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(pad(h, widths[i], t.leftAligned(i))))
			b.WriteString(dimStyle.Render(bc.v))
		}
		b.WriteString("\n")
		b.WriteString(line(bc.ml, bc.mc, bc.mr))
	}

	for _, row := range t.Rows {
		if isRule(row) {
			b.WriteString(line(bc.ml, bc.mc, bc.mr))
			continue
		}

		b.WriteString(dimStyle.Render(bc.v))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(valueStyle.Render(pad(cell, widths[i], t.leftAligned(i))))
			b.WriteString(dimStyle.Render(bc.v))
		}
		b.WriteString("\n")
	}

	b.WriteString(line(bc.bl, bc.bc, bc.br))
	return b.String()
}

func (t Table) leftAligned(col int) bool {
	return col == 0 || slices.Contains(t.Left, col)
}

func isRule(row []string) bool {
	return len(row) == 1 && row[0] == Rule[0]
}

// pad surrounds cell with one space each side and fills to width w by
// display width, so multi-byte glyphs line up.
func pad(cell string, w int, left bool) string {
	fill := strings.Repeat(" ", max(w-lipgloss.Width(cell), 0))
	if left {
		return " " + cell + fill + " "
	}
	return " " + fill + cell + " "
}

// RenderBar renders a bar of width cells filled in proportion to
// value/maxValue. A positive value always fills at least one cell.
func RenderBar(value, maxValue float64, width int) string {
	if maxValue <= 0 || value <= 0 || width <= 0 {
		return ""
	}
	n := int(value / maxValue * float64(width))
	n = min(max(n, 1), width)
	return strings.Repeat("█", n)
}

// RenderProgressBar renders an elapsed bar with a percentage.
func RenderProgressBar(fraction float64, width int) string {
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %3.0f%%", mutedStyle.Render(bar), fraction*100)
}
