// Package session computes the current usage window from Codex log
// markers and reduces token events against it.
//
// Two triggers start a new window: the first activity after a usage-limit
// error, and the first activity after a quiet gap of at least the window
// length. Without either, the window floats over the most recent activity
// inside the last window length.
package session

import (
	"time"

	"github.com/theirongolddev/cxburn/internal/model"
	"github.com/theirongolddev/cxburn/internal/source"
)

// DefaultGap is the usage window length Codex enforces.
const DefaultGap = 5 * time.Hour

// Resolve returns the current window given the activity and usage-limit
// instants in log order. A usage limit arms the next activity at or after
// it; an armed activity, or one at least gap after the previous activity,
// latches a new start. It is pure and total: empty input yields
// [now-gap, now].
func Resolve(now time.Time, activity, limits []time.Time, gap time.Duration) model.SessionWindow {
	if gap <= 0 {
		gap = DefaultGap
	}

	var (
		start   time.Time
		latched bool
		pending bool
		last    time.Time
		hasLast bool
		li      int
	)
	for _, a := range activity {
		for li < len(limits) && !limits[li].After(a) {
			pending = true
			li++
		}
		switch {
		case pending:
			start, latched, pending = a, true, false
		case hasLast && a.Sub(last) >= gap:
			start, latched = a, true
		}
		last, hasLast = a, true
	}

	if !latched {
		start = floorOrigin(now, activity, gap)
	}
	return model.SessionWindow{Start: start.UTC(), End: start.Add(gap).UTC()}
}

// floorOrigin returns the most recent activity no older than now-gap, or
// now-gap itself.
func floorOrigin(now time.Time, activity []time.Time, gap time.Duration) time.Time {
	floor := now.Add(-gap)
	origin, found := floor, false
	for _, a := range activity {
		if a.Before(floor) {
			continue
		}
		if !found || a.After(origin) {
			origin, found = a, true
		}
	}
	return origin
}

// Markers splits classified lines into the activity and usage-limit
// instant sequences Resolve expects. Lines without an instant are dropped.
func Markers(classes []source.LineClass) (activity, limits []time.Time) {
	for _, c := range classes {
		if !c.Instant.Valid {
			continue
		}
		if c.UsageLimit {
			limits = append(limits, c.Instant.Time)
		}
		if c.Activity {
			activity = append(activity, c.Instant.Time)
		}
	}
	return activity, limits
}
