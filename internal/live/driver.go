// Package live drives the polling loop behind the live views, the TUI and
// the daemon: read new log lines, update the session state, reduce the
// events into the current window and hand a Frame to a renderer.
package live

import (
	"context"
	"log"
	"time"

	"github.com/theirongolddev/cxburn/internal/model"
	"github.com/theirongolddev/cxburn/internal/pipeline"
	"github.com/theirongolddev/cxburn/internal/session"
	"github.com/theirongolddev/cxburn/internal/source"
)

// Mode selects what a frame describes.
type Mode int

const (
	// ModeSession reduces events into the current session window.
	ModeSession Mode = iota
	// ModeEvents lists the events of a rolling lookback.
	ModeEvents
)

// Options configures a Driver.
type Options struct {
	Path          string
	IncludeModel  bool
	Gap           time.Duration
	Rates         session.RateFunc // nil disables pricing
	CachedPricing bool

	Mode     Mode
	Lookback time.Duration // ModeEvents window, defaults to Gap
	MaxRows  int           // ModeEvents row cap
	Tail     int           // cold-start tail size in lines

	Interval time.Duration
	Now      func() time.Time
}

// Frame is one rendered state of the live view.
type Frame struct {
	Now       time.Time
	Mode      Mode
	Window    model.SessionWindow
	Until     time.Time // reduction end: min(Now, Window.End)
	Synthetic bool      // no activity found; Window is now-gap..now
	Aggregate model.SessionAggregate
	Events    []model.PricedEvent // ModeEvents only
	Priced    bool
	LastModel string
	Lines     int   // lines read so far
	NewLines  int   // lines read by this step
	ReadErr   error // transient read failure; the next step retries
}

// lineSource yields the complete lines appended since the last call.
// *pipeline.Tailer is the only production implementation.
type lineSource interface {
	Each(fn func(line string)) (int, error)
	Close() error
}

// Driver owns the tailer, the collector and the session state. It is not
// safe for concurrent use; callers serialize Step.
type Driver struct {
	opts      Options
	tailer    lineSource
	collector *pipeline.Collector
	state     *session.State

	stepped   bool
	coldTried bool
}

// Open prepares a driver. Failing to open the log is fatal; later read
// failures are not.
func Open(opts Options) (*Driver, error) {
	if opts.Gap <= 0 {
		opts.Gap = session.DefaultGap
	}
	if opts.Lookback <= 0 {
		opts.Lookback = opts.Gap
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 200
	}
	if opts.Tail <= 0 {
		opts.Tail = 50_000
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := source.CheckLog(opts.Path); err != nil {
		return nil, err
	}
	t, err := pipeline.OpenTailer(opts.Path)
	if err != nil {
		return nil, err
	}
	return &Driver{
		opts:      opts,
		tailer:    t,
		collector: pipeline.NewCollector(opts.IncludeModel),
		state:     session.NewState(opts.Gap),
	}, nil
}

// Options returns the effective options.
func (d *Driver) Options() Options {
	return d.opts
}

// SetMode switches between session and events frames.
func (d *Driver) SetMode(m Mode) {
	d.opts.Mode = m
}

// Close releases the log file.
func (d *Driver) Close() error {
	return d.tailer.Close()
}

// Step reads every complete line available now, updates the state and
// returns a fresh frame.
func (d *Driver) Step() Frame {
	n, err := d.tailer.Each(func(line string) {
		d.collector.Add(line)
		d.state.Apply(line)
	})
	if err != nil {
		log.Printf("cxburn live: reading log: %v", err)
	}
	if n > 0 {
		d.coldTried = false
	}

	now := d.opts.Now().UTC()
	synthetic := false
	if !d.state.Latched() && !d.coldTried {
		d.coldTried = true
		lines := source.TailLines(d.opts.Path, d.opts.Tail)
		if start, ok := session.ColdStart(lines, now.Add(-d.opts.Gap)); ok {
			d.state.Seed(start)
		}
	}
	if !d.state.Latched() {
		synthetic = true
	}
	d.stepped = true

	res := d.collector.Result()
	f := Frame{
		Now:       now,
		Mode:      d.opts.Mode,
		Priced:    d.opts.Rates != nil,
		LastModel: res.LastModel,
		Lines:     res.Lines,
		NewLines:  n,
		ReadErr:   err,
	}

	if d.opts.Mode == ModeEvents {
		since := now.Add(-d.opts.Lookback)
		f.Window = model.SessionWindow{Start: since, End: now}
		f.Until = now
		priced := pipeline.Price(res.Events, d.opts.Rates, d.opts.CachedPricing)
		f.Events = pipeline.LastN(pipeline.FilterSince(priced, since), d.opts.MaxRows)
		f.Aggregate = pipeline.Summarize(f.Events)
		if f.Priced {
			f.Aggregate.AddCost(0)
		}
		return f
	}

	if synthetic {
		start := now.Add(-d.opts.Gap)
		f.Window = model.SessionWindow{Start: start, End: now}
		f.Until = now
		f.Synthetic = true
		return f
	}

	f.Window = d.state.Window(now)
	f.Until = f.Window.End
	if now.Before(f.Until) {
		f.Until = now
	}
	f.Aggregate = session.ReduceWith(res.Events, f.Window.Start, f.Until, d.opts.Rates, d.opts.CachedPricing)
	return f
}

// Stepped reports whether Step has run at least once.
func (d *Driver) Stepped() bool {
	return d.stepped
}

// Run steps, renders and sleeps until ctx is canceled. Cancellation is
// checked before each step, so a frame is either rendered whole or not at
// all. The log file is closed on return.
func (d *Driver) Run(ctx context.Context, render func(Frame)) error {
	defer func() { _ = d.Close() }()

	for {
		if ctx.Err() != nil {
			return nil
		}
		render(d.Step())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d.opts.Interval):
		}
	}
}
