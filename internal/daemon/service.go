// Package daemon runs the background window monitor and its HTTP/SSE API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/theirongolddev/cxburn/internal/live"
)

// Config controls the daemon runtime behavior.
type Config struct {
	LogPath      string
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Watch        bool // wake on log writes as well as on the ticker
}

// Stepper produces frames; *live.Driver satisfies it.
type Stepper interface {
	Step() live.Frame
}

// Snapshot is the window state carried by status and event payloads.
type Snapshot struct {
	At          time.Time `json:"at"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Synthetic   bool      `json:"synthetic"`
	Elapsed     float64   `json:"elapsed"`
	Events      int       `json:"events"`
	InputTokens int64     `json:"input_tokens"`
	CachedInput int64     `json:"cached_input_tokens"`
	Output      int64     `json:"output_tokens"`
	Reasoning   int64     `json:"reasoning_output_tokens"`
	Tokens      int64     `json:"total_tokens"`
	CostUSD     *float64  `json:"cost_usd,omitempty"`
	Model       string    `json:"model,omitempty"`
}

// Delta is the change between two snapshots of the same window.
type Delta struct {
	Events  int     `json:"events"`
	Tokens  int64   `json:"total_tokens"`
	CostUSD float64 `json:"cost_usd"`
}

func (d Delta) isZero() bool { return d == Delta{} }

// Event is published whenever a poll changes the snapshot.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Event types.
const (
	EventSnapshot   = "snapshot"
	EventUsageDelta = "usage_delta"
	EventNewWindow  = "new_window"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	LogPath         string    `json:"log_path"`
	LinesRead       int       `json:"lines_read"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// pollState is what the last poll observed.
type pollState struct {
	at    time.Time
	count int64
	lines int
	err   string
	snap  *Snapshot
}

// Service steps a driver on a timer (and on log writes) and serves the
// result. Only the Run goroutine calls driver.Step.
type Service struct {
	cfg       Config
	driver    Stepper
	startedAt time.Time
	events    *hub

	mu   sync.RWMutex
	last pollState
}

// New returns a service for driver, filling unset config fields.
func New(cfg Config, driver Stepper) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 15 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	return &Service{
		cfg:       cfg,
		driver:    driver,
		startedAt: time.Now(),
		events:    newHub(cfg.EventsBuffer),
	}
}

// Run serves the API and polls until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var wake <-chan struct{}
	if s.cfg.Watch {
		var stop func()
		wake, stop = watchLog(s.cfg.LogPath)
		defer stop()
	}

	s.pollOnce()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.pollOnce()
		case <-wake:
			s.pollOnce()
		case err := <-serveErr:
			return fmt.Errorf("daemon http server: %w", err)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		}
	}
}

// pollOnce steps the driver, records the frame and publishes at most
// one event describing the change.
func (s *Service) pollOnce() {
	f := s.driver.Step()
	snap := snapshotFromFrame(f)

	s.mu.Lock()
	prev := s.last.snap
	s.last = pollState{at: f.Now, count: s.last.count + 1, lines: f.Lines, snap: &snap}
	if f.ReadErr != nil {
		s.last.err = f.ReadErr.Error()
	}
	s.mu.Unlock()

	if ev, ok := classify(prev, snap); ok {
		ev.Timestamp = f.Now
		s.events.publish(ev)
	}
}

// classify picks the event, if any, for the move from prev to curr. A
// synthetic window never counts as a new one.
func classify(prev *Snapshot, curr Snapshot) (Event, bool) {
	switch {
	case prev == nil:
		return Event{Type: EventSnapshot, Snapshot: curr}, true
	case !curr.Synthetic && !prev.WindowStart.Equal(curr.WindowStart):
		return Event{Type: EventNewWindow, Snapshot: curr}, true
	}
	d := diffSnapshots(*prev, curr)
	if d.isZero() {
		return Event{}, false
	}
	return Event{Type: EventUsageDelta, Snapshot: curr, Delta: d}, true
}

func snapshotFromFrame(f live.Frame) Snapshot {
	a := f.Aggregate
	return Snapshot{
		At:          f.Now,
		WindowStart: f.Window.Start,
		WindowEnd:   f.Window.End,
		Synthetic:   f.Synthetic,
		Elapsed:     f.Window.Elapsed(f.Now),
		Events:      a.Events,
		InputTokens: a.InputTokens,
		CachedInput: a.CachedInputTokens,
		Output:      a.OutputTokens,
		Reasoning:   a.ReasoningOutputTokens,
		Tokens:      a.TotalTokens,
		CostUSD:     a.CostUSD,
		Model:       f.LastModel,
	}
}

func usd(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Events:  curr.Events - prev.Events,
		Tokens:  curr.Tokens - prev.Tokens,
		CostUSD: usd(curr.CostUSD) - usd(prev.CostUSD),
	}
}

// Status reports the service state as of the last poll.
func (s *Service) Status() Status {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		LastPollAt:      last.at,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       last.count,
		LogPath:         s.cfg.LogPath,
		LinesRead:       last.lines,
		LastError:       last.err,
	}
	if last.snap != nil {
		st.Summary = *last.snap
	}
	st.EventCount, st.SubscriberCount = s.events.counts()
	return st
}
