// Package tui provides the interactive cxburn dashboard.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/config"
	"github.com/theirongolddev/cxburn/internal/live"
	"github.com/theirongolddev/cxburn/internal/model"
	"github.com/theirongolddev/cxburn/internal/tui/components"
	"github.com/theirongolddev/cxburn/internal/tui/theme"
)

// Stepper produces frames. *live.Driver implements it.
type Stepper interface {
	Step() live.Frame
	SetMode(m live.Mode)
}

// frameMsg carries a finished step.
type frameMsg live.Frame

// tickMsg fires on the refresh interval.
type tickMsg time.Time

// App is the root bubbletea model.
type App struct {
	driver   Stepper
	interval time.Duration
	cfg      config.Config

	frame    live.Frame
	loaded   bool
	inFlight bool
	// pending is applied between steps; SetMode never races Step.
	pending *live.Mode
	updated time.Time

	width     int
	height    int
	activeTab int
	showCost  bool // bar metric: cost instead of tokens

	spinner spinner.Model

	setupForm *huh.Form
	setupVals SetupValues
	needSetup bool
	saveErr   error
}

const (
	minTerminalWidth = 60
	maxContentWidth  = 140
	sparkBuckets     = 48
)

// NewApp builds the dashboard over driver. needSetup shows the first-run
// form over the dashboard until it is completed or aborted.
func NewApp(driver Stepper, cfg config.Config, interval time.Duration, needSetup bool) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	a := App{
		driver:   driver,
		interval: interval,
		cfg:      cfg,
		spinner:  sp,
		inFlight: true, // Init issues the first step
	}
	if needSetup {
		a.needSetup = true
		a.setupVals = NewSetupValues(cfg)
		a.setupForm = NewSetupForm(&a.setupVals)
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick, stepCmd(a.driver), tickCmd(a.interval)}
	if a.setupForm != nil {
		cmds = append(cmds, a.setupForm.Init())
	}
	return tea.Batch(cmds...)
}

func stepCmd(d Stepper) tea.Cmd {
	return func() tea.Msg {
		return frameMsg(d.Step())
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// requestStep starts a step unless one is running.
func (a *App) requestStep() tea.Cmd {
	if a.inFlight {
		return nil
	}
	if a.pending != nil {
		a.driver.SetMode(*a.pending)
		a.pending = nil
	}
	a.inFlight = true
	return stepCmd(a.driver)
}

func (a *App) switchTab(idx int) tea.Cmd {
	if idx < 0 || idx == a.activeTab {
		return nil
	}
	a.activeTab = idx
	m := live.ModeSession
	if idx == 1 {
		m = live.ModeEvents
	}
	a.pending = &m
	return a.requestStep()
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case frameMsg:
		a.frame = live.Frame(msg)
		a.loaded = true
		a.inFlight = false
		a.updated = a.frame.Now
		// A tab switch during the step asked for another frame.
		if a.pending != nil {
			cmd := a.requestStep()
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmd := a.requestStep()
		return a, tea.Batch(cmd, tickCmd(a.interval))

	case spinner.TickMsg:
		if a.loaded && !a.needSetup {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		if a.needSetup {
			return a.forwardSetup(msg, cmd)
		}
		return a, cmd

	case tea.MouseMsg:
		if a.needSetup || !a.loaded {
			return a, nil
		}
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.Y == 0 {
			cmd := a.switchTab(components.TabAtX(msg.X, a.activeTab))
			return a, cmd
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return a, tea.Quit
		}
		if a.needSetup && a.setupForm != nil {
			return a.forwardSetup(msg, nil)
		}
		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			cmd := a.requestStep()
			return a, cmd
		case "b":
			a.showCost = !a.showCost
			return a, nil
		case "tab":
			cmd := a.switchTab((a.activeTab + 1) % len(components.Tabs))
			return a, cmd
		}
		if len(msg.Runes) == 1 {
			cmd := a.switchTab(components.TabIdxByKey(msg.Runes[0]))
			return a, cmd
		}
		return a, nil
	}

	if a.needSetup && a.setupForm != nil {
		return a.forwardSetup(msg, nil)
	}
	return a, nil
}

func (a App) forwardSetup(msg tea.Msg, prev tea.Cmd) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.saveErr = a.saveSetup()
		a.needSetup = false
		a.setupForm = nil
		return a, prev
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, prev
	}
	return a, tea.Batch(prev, cmd)
}

// saveSetup persists the form. Settings that shape the driver (log path,
// gap, pricing) take effect on the next start; the theme applies now.
func (a *App) saveSetup() error {
	if err := a.setupVals.Apply(&a.cfg); err != nil {
		return err
	}
	theme.SetActive(a.cfg.Appearance.Theme)
	return config.Save(a.cfg)
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.width < minTerminalWidth {
		return fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  cxburn needs at least %d columns.\n", a.width, minTerminalWidth)
	}
	if !a.loaded {
		return a.viewLoading()
	}
	return a.viewMain()
}

func (a App) viewLoading() string {
	t := theme.Active
	title := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render("◈ cxburn")
	sub := lipgloss.NewStyle().Foreground(t.TextMuted).Render(" · Codex token usage")
	body := title + sub + "\n\n" + a.spinner.View() + " Reading log"
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, body)
}

func (a App) viewMain() string {
	w := a.contentWidth()

	var body string
	if a.activeTab == 1 {
		body = a.viewEvents(w)
	} else {
		body = a.viewSession(w)
	}

	header := components.RenderTabBar(a.activeTab)
	status := components.RenderStatusBar(w, "[s]ession [e]vents [b]ar [r]efresh [q]uit", a.statusText())

	out := header + "\n" + body
	if a.height > 0 {
		used := lipgloss.Height(out) + 1
		if gap := a.height - used; gap > 0 {
			out += strings.Repeat("\n", gap)
		}
	}
	return out + "\n" + status
}

func (a App) statusText() string {
	f := a.frame
	switch {
	case a.saveErr != nil:
		return "config not saved: " + a.saveErr.Error()
	case f.ReadErr != nil:
		return "read error: " + f.ReadErr.Error()
	}
	return fmt.Sprintf("%s lines · updated %s", cli.FormatNumber(int64(f.Lines)), a.updated.Local().Format("15:04:05"))
}

func costText(agg model.Aggregate, priced bool) string {
	if !priced || agg.CostUSD == nil {
		return "-"
	}
	return cli.FormatCost(*agg.CostUSD)
}

func (a App) viewSession(w int) string {
	t := theme.Active
	f := a.frame
	agg := f.Aggregate

	modelName := f.LastModel
	if modelName == "" {
		modelName = "-"
	}
	metrics := []components.Metric{
		{Label: "Tokens", Value: cli.FormatTokens(agg.TotalTokens), Sub: "in " + cli.FormatPair(agg.InputTokens, agg.CachedInputTokens)},
		{Label: "Output", Value: cli.FormatTokens(agg.OutputTokens), Sub: "reasoning " + cli.FormatTokens(agg.ReasoningOutputTokens)},
		{Label: "Cost", Value: costText(agg, f.Priced), Sub: fmt.Sprintf("%d events", agg.Events)},
		{Label: "Model", Value: modelName},
	}
	if f.Synthetic {
		for i := range metrics[:3] {
			metrics[i].Value = "-"
			metrics[i].Sub = "no activity"
		}
	}

	inner := components.CardInnerWidth(w)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	text := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(muted.Render("window ") + text.Render(fmt.Sprintf("%s - %s",
		f.Window.Start.Local().Format("Jan 2 15:04"), f.Window.End.Local().Format("15:04"))))
	if f.Synthetic {
		b.WriteString(muted.Render("  (no activity yet)"))
	}
	b.WriteString("\n\n")
	b.WriteString(components.WindowBar(f.Window.Elapsed(f.Now), f.Window.End.Sub(f.Now), max(inner-20, 10)))
	b.WriteString("\n\n")
	b.WriteString(a.burnLine(muted, text))

	return components.MetricRow(metrics, w) + "\n" +
		components.ContentCard("Session window", b.String(), w, true)
}

// burnLine shows the burn rate so far and its projection to window end.
func (a App) burnLine(label, value lipgloss.Style) string {
	f := a.frame
	elapsed := f.Until.Sub(f.Window.Start)
	if f.Synthetic || elapsed <= 0 || f.Aggregate.Events == 0 {
		return label.Render("burn rate ") + value.Render("-")
	}
	perHour := func(v float64) float64 { return v / elapsed.Hours() }
	project := func(v float64) float64 { return v / elapsed.Hours() * f.Window.Duration().Hours() }

	if a.showCost {
		if f.Aggregate.CostUSD == nil {
			return label.Render("burn rate ") + value.Render("unpriced")
		}
		c := *f.Aggregate.CostUSD
		return label.Render("burn rate ") + value.Render(cli.FormatCost(perHour(c))+"/h") +
			label.Render("   projected ") + value.Render(cli.FormatCost(project(c)))
	}
	tok := float64(f.Aggregate.TotalTokens)
	return label.Render("burn rate ") + value.Render(cli.FormatTokens(int64(perHour(tok)))+" tok/h") +
		label.Render("   projected ") + value.Render(cli.FormatTokens(int64(project(tok))))
}

func (a App) viewEvents(w int) string {
	t := theme.Active
	f := a.frame

	rows := make([][]string, 0, len(f.Events))
	// Most recent first; keep what fits.
	room := max(a.height-12, 3)
	for i := len(f.Events) - 1; i >= 0 && len(rows) < room; i-- {
		ev := f.Events[i]
		ts := "-"
		if ev.Timestamp.Valid {
			ts = ev.Timestamp.Time.Local().Format("15:04:05")
		}
		row := []string{ts,
			cli.FormatPair(ev.InputTokens, ev.CachedInputTokens),
			cli.FormatPair(ev.OutputTokens, ev.ReasoningOutputTokens),
			cli.FormatTokens(ev.TotalTokens),
		}
		if f.Priced {
			row = append(row, cli.FormatUSD(ev.CostUSD))
		}
		if a.cfg.General.IncludeModel {
			row = append(row, ev.Model)
		}
		rows = append(rows, row)
	}
	headers := []string{"time", "input (cached)", "output (reasoning)", "total"}
	if f.Priced {
		headers = append(headers, "$")
	}
	if a.cfg.General.IncludeModel {
		headers = append(headers, "model")
	}

	var b strings.Builder
	spark := components.Sparkline(bucketEvents(f.Events, f.Window, sparkBuckets, a.showCost), t.Accent)
	b.WriteString(spark)
	b.WriteString("\n\n")
	if len(rows) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("no events in this period"))
	} else {
		b.WriteString(cli.RenderTable(cli.Table{Headers: headers, Rows: rows, Border: cli.BorderUnicode}))
	}

	agg := f.Aggregate
	metrics := []components.Metric{
		{Label: "Events", Value: cli.FormatNumber(int64(agg.Events))},
		{Label: "Tokens", Value: cli.FormatTokens(agg.TotalTokens)},
		{Label: "Cost", Value: costText(agg, f.Priced)},
	}
	title := fmt.Sprintf("Last %s", components.FormatCountdown(f.Window.Duration()))
	return components.MetricRow(metrics, w) + "\n" + components.ContentCard(title, b.String(), w, true)
}

// bucketEvents sums tokens (or cost) of events into n equal slices of w.
func bucketEvents(events []model.PricedEvent, w model.SessionWindow, n int, cost bool) []float64 {
	out := make([]float64, n)
	span := w.Duration()
	if span <= 0 {
		return out
	}
	for _, ev := range events {
		if !ev.Timestamp.Valid || !w.Contains(ev.Timestamp.Time) {
			continue
		}
		idx := min(int(float64(ev.Timestamp.Time.Sub(w.Start))/float64(span)*float64(n)), n-1)
		if cost {
			if ev.CostUSD != nil {
				out[idx] += *ev.CostUSD
			}
			continue
		}
		out[idx] += float64(ev.TotalTokens)
	}
	return out
}
