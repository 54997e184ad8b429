package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/cxburn/internal/config"
	"github.com/theirongolddev/cxburn/internal/live"
	"github.com/theirongolddev/cxburn/internal/model"
)

type fakeDriver struct {
	mode  live.Mode
	steps int
	frame live.Frame
}

func (d *fakeDriver) Step() live.Frame {
	d.steps++
	f := d.frame
	f.Mode = d.mode
	return f
}

func (d *fakeDriver) SetMode(m live.Mode) { d.mode = m }

var now = time.Date(2025, 9, 14, 8, 20, 0, 0, time.UTC)

func sessionFrame() live.Frame {
	cost := 1.25
	return live.Frame{
		Now:    now,
		Window: model.SessionWindow{Start: now.Add(-3 * time.Hour), End: now.Add(2 * time.Hour)},
		Until:  now,
		Priced: true,
		Aggregate: model.Aggregate{
			Events:       3,
			InputTokens:  1000,
			OutputTokens: 500,
			TotalTokens:  1500,
			CostUSD:      &cost,
		},
		LastModel: "gpt-5-codex",
		Lines:     42,
	}
}

func newTestApp(d *fakeDriver) App {
	a := NewApp(d, config.DefaultConfig(), time.Second, false)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m.(App)
}

func step(t *testing.T, a App, cmd tea.Cmd) App {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a step command")
	}
	m, _ := a.Update(cmd())
	return m.(App)
}

func TestApp_LoadingUntilFirstFrame(t *testing.T) {
	d := &fakeDriver{frame: sessionFrame()}
	a := newTestApp(d)
	if !strings.Contains(a.View(), "Reading log") {
		t.Fatal("expected loading view before the first frame")
	}

	a = step(t, a, stepCmd(d))
	if !a.loaded || a.inFlight {
		t.Fatalf("loaded=%v inFlight=%v", a.loaded, a.inFlight)
	}
	view := a.View()
	for _, want := range []string{"1.5k", "gpt-5-codex", "Session window", "projected"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestApp_SingleStepInFlight(t *testing.T) {
	d := &fakeDriver{frame: sessionFrame()}
	a := newTestApp(d)

	// Init's step is still outstanding.
	if cmd := a.requestStep(); cmd != nil {
		t.Fatal("second step issued while the first is in flight")
	}
	a = step(t, a, stepCmd(d))

	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	a = m.(App)
	if !a.inFlight {
		t.Fatal("refresh should start a step")
	}
	m, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd != nil || !m.(App).inFlight {
		t.Fatal("refresh during a step should be ignored")
	}
}

func TestApp_TabSwitchDefersSetMode(t *testing.T) {
	d := &fakeDriver{frame: sessionFrame()}
	a := newTestApp(d)

	// Switch while Init's step runs: mode must not change yet.
	m, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	a = m.(App)
	if cmd != nil || d.mode != live.ModeSession {
		t.Fatalf("mode changed mid-step: cmd=%v mode=%v", cmd != nil, d.mode)
	}

	m, cmd = a.Update(frameMsg(d.Step()))
	a = m.(App)
	if d.mode != live.ModeEvents {
		t.Fatalf("pending mode not applied, mode=%v", d.mode)
	}
	a = step(t, a, cmd)
	if a.activeTab != 1 || a.frame.Mode != live.ModeEvents {
		t.Fatalf("tab=%d frame mode=%v", a.activeTab, a.frame.Mode)
	}
	if !strings.Contains(a.View(), "no events in this period") {
		t.Error("events view should report an empty period")
	}
}

func TestApp_BarToggle(t *testing.T) {
	d := &fakeDriver{frame: sessionFrame()}
	a := step(t, newTestApp(d), stepCmd(d))

	if !strings.Contains(a.View(), "tok/h") {
		t.Fatal("token burn rate expected by default")
	}
	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}})
	if !strings.Contains(m.(App).View(), "$0.42/h") {
		t.Error("cost burn rate expected after toggling")
	}
}

func TestApp_SyntheticWindow(t *testing.T) {
	f := sessionFrame()
	f.Synthetic = true
	f.Aggregate = model.Aggregate{}
	d := &fakeDriver{frame: f}
	a := step(t, newTestApp(d), stepCmd(d))
	if !strings.Contains(a.View(), "no activity") {
		t.Error("synthetic window should say there is no activity")
	}
}

func TestApp_Quit(t *testing.T) {
	d := &fakeDriver{frame: sessionFrame()}
	a := step(t, newTestApp(d), stepCmd(d))
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestBucketEvents(t *testing.T) {
	w := model.SessionWindow{Start: now.Add(-time.Hour), End: now}
	ev := func(at time.Time, tok int64) model.PricedEvent {
		return model.PricedEvent{TokenEvent: model.TokenEvent{Timestamp: model.At(at), TotalTokens: tok}}
	}
	events := []model.PricedEvent{
		ev(now.Add(-59*time.Minute), 10),
		ev(now.Add(-58*time.Minute), 5),
		ev(now, 7),                    // end of window lands in the last bucket
		ev(now.Add(-2*time.Hour), 99), // outside
	}
	got := bucketEvents(events, w, 4, false)
	if got[0] != 15 || got[3] != 7 || got[1] != 0 || got[2] != 0 {
		t.Errorf("buckets = %v", got)
	}
}
