// Package pipeline loads Codex log data and aggregates it into reports.
package pipeline

import (
	"os"
	"time"

	"github.com/theirongolddev/cxburn/internal/model"
	"github.com/theirongolddev/cxburn/internal/source"
)

// LoadResult holds the output of a full log read.
type LoadResult struct {
	Events    []model.TokenEvent
	Activity  []time.Time // activity instants in log order
	Limits    []time.Time // usage-limit instants in log order
	Lines     int
	Untimed   int // token events without a parseable timestamp
	BytesRead int64
	LastModel string
}

// ProgressFunc is called during loading to report progress.
// current is the number of bytes read so far, total is the file size.
type ProgressFunc func(current, total int64)

// progressEvery is how many lines pass between progress callbacks.
const progressEvery = 50_000

// Collector turns raw lines into events and window markers. It is the
// single place where lines meet the parser, shared by one-shot loads and
// the live driver.
type Collector struct {
	parser *source.Parser
	result LoadResult
}

// NewCollector returns an empty collector.
func NewCollector(includeModel bool) *Collector {
	return &Collector{parser: source.NewParser(includeModel)}
}

// Add processes one line and returns the token event it held, if any.
func (c *Collector) Add(line string) (model.TokenEvent, bool) {
	c.result.Lines++
	cls := source.Classify(line)
	if cls.Instant.Valid {
		if cls.UsageLimit {
			c.result.Limits = append(c.result.Limits, cls.Instant.Time)
		}
		if cls.Activity {
			c.result.Activity = append(c.result.Activity, cls.Instant.Time)
		}
	}

	ev, ok := c.parser.Parse(line)
	if !ok {
		return ev, false
	}
	if !ev.Timestamp.Valid {
		c.result.Untimed++
	}
	c.result.Events = append(c.result.Events, ev)
	return ev, true
}

// Result returns what has been collected so far.
func (c *Collector) Result() *LoadResult {
	r := c.result
	r.LastModel = c.parser.Model()
	return &r
}

// Load reads the whole log at path.
func Load(path string, includeModel bool, progressFn ProgressFunc) (*LoadResult, error) {
	if err := source.CheckLog(path); err != nil {
		return nil, err
	}

	var total int64
	if info, err := os.Stat(path); err == nil {
		total = info.Size()
	}

	t, err := OpenTailer(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	c := NewCollector(includeModel)
	_, err = t.Each(func(line string) {
		c.Add(line)
		if progressFn != nil && c.result.Lines%progressEvery == 0 {
			progressFn(t.Offset(), total)
		}
	})
	if err != nil {
		return nil, err
	}
	if line, ok := t.Flush(); ok {
		c.Add(line)
	}
	if progressFn != nil {
		progressFn(t.Offset(), total)
	}

	res := c.Result()
	res.BytesRead = t.Offset()
	return res, nil
}
