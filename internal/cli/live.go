package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/theirongolddev/cxburn/internal/live"
	"github.com/theirongolddev/cxburn/internal/model"
)

// Bar metrics for the live session row.
const (
	BarTokens = "tokens"
	BarCost   = "cost"
)

// FrameOptions controls live frame rendering.
type FrameOptions struct {
	Options
	Bar      string  // BarTokens or BarCost
	BarMax   float64 // full-scale value; zero scales to the value itself
	BarWidth int
}

// Screen writes whole frames, clearing the terminal first when the
// destination is one.
type Screen struct {
	w   io.Writer
	out *termenv.Output
	tty bool
}

// NewScreen wraps f.
func NewScreen(f *os.File) *Screen {
	return &Screen{
		w:   f,
		out: termenv.NewOutput(f),
		tty: term.IsTerminal(int(f.Fd())), //nolint:gosec // fd fits in int
	}
}

// Draw replaces the screen contents with frame.
func (s *Screen) Draw(frame string) {
	if s.tty {
		s.out.ClearScreen()
	}
	_, _ = io.WriteString(s.w, frame)
}

// RenderFrame renders one live frame.
func RenderFrame(f live.Frame, opts FrameOptions) string {
	if f.Mode == live.ModeEvents {
		return renderEventsFrame(f, opts)
	}
	return renderSessionFrame(f, opts)
}

func renderEventsFrame(f live.Frame, opts FrameOptions) string {
	var b strings.Builder
	hours := f.Window.Duration().Hours()
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("Live (last %gh) %s", hours, clock(f.Now, opts.Loc, "2006-01-02 15:04:05 MST"))))
	agg := f.Aggregate
	r := EventsReport(f.Events, &agg, opts.Options)
	r.Table.Border = opts.Border
	r.Table.NoHeader = opts.NoHeader
	b.WriteString(RenderTable(r.Table))
	return b.String()
}

func renderSessionFrame(f live.Frame, opts FrameOptions) string {
	var b strings.Builder

	startLabel := "-"
	if !f.Synthetic {
		startLabel = clock(f.Window.Start, opts.Loc, "2006-01-02 15:04")
	}
	fmt.Fprintf(&b, "%s\n\n", headerStyle.Render(fmt.Sprintf("Live session  start %s | end %s | now %s",
		startLabel, clock(f.Window.End, opts.Loc, "15:04"), clock(f.Now, opts.Loc, "15:04:05 MST"))))

	t := Table{
		Headers:  []string{"start-end", "dur", "input (cached)", "output (reasoning)", "total", "$", "bar"},
		Border:   opts.Border,
		NoHeader: opts.NoHeader,
		Left:     []int{6},
	}
	span := clock(f.Window.Start, opts.Loc, "15:04") + "-" + clock(f.Until, opts.Loc, "15:04")
	dur := FormatDuration(int64(f.Until.Sub(f.Window.Start).Seconds()))

	if f.Synthetic || f.Aggregate.Events == 0 {
		t.Rows = [][]string{{span, dur, "- (-)", "- (-)", "-", "-", ""}}
	} else {
		a := f.Aggregate
		cost := "-"
		if a.CostUSD != nil {
			cost = costStyle.Render(FormatUSD(a.CostUSD))
		}
		t.Rows = [][]string{{
			span, dur,
			FormatPair(a.InputTokens, a.CachedInputTokens),
			FormatPair(a.OutputTokens, a.ReasoningOutputTokens),
			tokenStyle.Render(FormatTokens(a.TotalTokens)),
			cost,
			sessionBar(a, opts),
		}}
	}
	b.WriteString(RenderTable(t))

	if !f.Synthetic {
		remaining := f.Window.End.Sub(f.Now)
		fmt.Fprintf(&b, "\n  %s  %s\n", RenderProgressBar(f.Window.Elapsed(f.Now), 40), countdown(remaining))
	} else {
		fmt.Fprintf(&b, "\n  %s\n", mutedStyle.Render("no activity in the last window"))
	}
	return b.String()
}

func sessionBar(a model.Aggregate, opts FrameOptions) string {
	width := opts.BarWidth
	if width <= 0 {
		width = 42
	}
	v := float64(a.TotalTokens)
	if opts.Bar == BarCost {
		v = a.Cost()
	}
	top := opts.BarMax
	if top <= 0 {
		top = v
	}
	bar := RenderBar(v, top, width)
	if opts.BarMax > 0 && v > opts.BarMax {
		return warnStyle.Render(bar)
	}
	return bar
}

func countdown(d time.Duration) string {
	if d <= 0 {
		return warnStyle.Render("window ended")
	}
	return mutedStyle.Render(FormatDuration(int64(d.Seconds())) + " left")
}

// StatusRecord is the machine-readable current-window status.
type StatusRecord struct {
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	Now           time.Time     `json:"now"`
	Synthetic     bool          `json:"synthetic"`
	Elapsed       float64       `json:"elapsed"`
	RemainingSecs int64         `json:"remaining_secs"`
	Usage         SummaryRecord `json:"usage"`
}

// StatusReport renders the current window as a two-column table.
func StatusReport(f live.Frame, opts Options) Report {
	a := f.Aggregate
	remaining := max(int64(f.Window.End.Sub(f.Now).Seconds()), 0)
	rec := StatusRecord{
		Start:         f.Window.Start,
		End:           f.Window.End,
		Now:           f.Now,
		Synthetic:     f.Synthetic,
		Elapsed:       f.Window.Elapsed(f.Now),
		RemainingSecs: remaining,
		Usage: SummaryRecord{
			Events: a.Events, InputTokens: a.InputTokens, CachedInputTokens: a.CachedInputTokens,
			OutputTokens: a.OutputTokens, ReasoningOutputTokens: a.ReasoningOutputTokens,
			TotalTokens: a.TotalTokens, CostUSD: a.CostUSD,
		},
	}

	start := clock(f.Window.Start, opts.Loc, "2006-01-02 15:04")
	if f.Synthetic {
		start = "- (no activity)"
	}
	t := Table{
		Headers: []string{"window", ""},
		Rows: [][]string{
			{"start", start},
			{"end", clock(f.Window.End, opts.Loc, "2006-01-02 15:04")},
			{"elapsed", RenderProgressBar(rec.Elapsed, 24)},
			{"remaining", FormatDuration(remaining)},
			Rule,
			{"events", FormatNumber(int64(a.Events))},
			{"input (cached)", FormatPair(a.InputTokens, a.CachedInputTokens)},
			{"output (reasoning)", FormatPair(a.OutputTokens, a.ReasoningOutputTokens)},
			{"total", FormatTokens(a.TotalTokens)},
		},
	}
	if a.CostUSD != nil {
		t.Rows = append(t.Rows, []string{"cost", FormatCost(*a.CostUSD)})
	}

	return Report{
		Table:  t,
		Fields: []string{"start", "end", "now", "synthetic", "elapsed", "remaining_secs", "events", "total_tokens", "cost_usd"},
		Rows: [][]string{{
			rec.Start.UTC().Format(time.RFC3339), rec.End.UTC().Format(time.RFC3339), rec.Now.UTC().Format(time.RFC3339),
			fmt.Sprint(rec.Synthetic), fmt.Sprintf("%.4f", rec.Elapsed), itoa(remaining),
			fmt.Sprint(a.Events), itoa(a.TotalTokens), FormatUSD(a.CostUSD),
		}},
		Records: []any{rec},
	}
}
