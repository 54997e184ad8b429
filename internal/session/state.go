package session

import (
	"time"

	"github.com/theirongolddev/cxburn/internal/model"
	"github.com/theirongolddev/cxburn/internal/source"
)

// State is the online form of Resolve. Feeding it every line of a log in
// order leaves it holding the same window Resolve computes from the
// markers of that log. A usage limit logged after an activity but stamped
// no later than it arms that activity, as it would in Resolve, as long as
// it is newer than the activity before.
//
// A State is owned by a single goroutine.
type State struct {
	Gap time.Duration

	SessionStart          model.Instant
	SessionEnd            model.Instant
	UsageLimitPending     bool
	LastSeen              model.Instant // previous activity instant
	PrevSeen              model.Instant // last activity instant before LastSeen
	LastSessionConfigured model.Instant
}

// NewState returns an empty state for the given window length.
func NewState(gap time.Duration) *State {
	if gap <= 0 {
		gap = DefaultGap
	}
	return &State{Gap: gap}
}

// Apply classifies one raw log line and folds it into the state.
func (s *State) Apply(line string) {
	s.ApplyClass(source.Classify(line))
}

// ApplyClass folds an already classified line into the state.
func (s *State) ApplyClass(c source.LineClass) {
	if !c.Instant.Valid {
		return
	}
	at := c.Instant.Time

	if c.UsageLimit {
		if s.armsLastSeen(at) {
			s.latch(s.LastSeen.Time)
		} else {
			s.UsageLimitPending = true
		}
	}

	if !c.Activity {
		return
	}
	switch {
	case s.UsageLimitPending:
		s.latch(at)
		s.UsageLimitPending = false
	case s.LastSeen.Valid && at.Sub(s.LastSeen.Time) >= s.Gap:
		s.latch(at)
	}
	if c.SessionConfigured {
		s.LastSessionConfigured = c.Instant
	}
	if !s.LastSeen.Valid || !at.Equal(s.LastSeen.Time) {
		s.PrevSeen = s.LastSeen
	}
	s.LastSeen = c.Instant
}

// armsLastSeen reports whether a limit at the given instant, arriving
// after LastSeen in the log, falls in (PrevSeen, LastSeen]. Resolve would
// have consumed such a limit at LastSeen.
func (s *State) armsLastSeen(limit time.Time) bool {
	if !s.LastSeen.Valid || limit.After(s.LastSeen.Time) {
		return false
	}
	return !s.PrevSeen.Valid || limit.After(s.PrevSeen.Time)
}

func (s *State) latch(at time.Time) {
	s.SessionStart = model.At(at)
	s.SessionEnd = model.At(at.Add(s.Gap))
}

// Latched reports whether a trigger has fixed the session start.
func (s *State) Latched() bool {
	return s.SessionStart.Valid
}

// Seed fixes the session start when no trigger has been seen. It is a
// no-op once the state is latched.
func (s *State) Seed(start time.Time) {
	if s.Latched() {
		return
	}
	s.latch(start)
}

// Window returns the current window, applying the same floor fallback as
// Resolve when nothing has latched.
func (s *State) Window(now time.Time) model.SessionWindow {
	if s.Latched() {
		return model.SessionWindow{Start: s.SessionStart.Time, End: s.SessionEnd.Time}
	}
	start := now.Add(-s.Gap)
	if s.LastSeen.Valid && !s.LastSeen.Time.Before(start) {
		start = s.LastSeen.Time
	}
	return model.SessionWindow{Start: start.UTC(), End: start.Add(s.Gap).UTC()}
}

// ColdStart scans a bounded tail of lines for the earliest activity at or
// after base. Lines without a parseable instant are ignored, so a corrupt
// tail simply yields no result.
func ColdStart(lines []string, base time.Time) (time.Time, bool) {
	var (
		best  time.Time
		found bool
	)
	for _, line := range lines {
		c := source.Classify(line)
		if !c.Activity || !c.Instant.Valid {
			continue
		}
		at := c.Instant.Time
		if at.Before(base) {
			continue
		}
		if !found || at.Before(best) {
			best, found = at, true
		}
	}
	return best, found
}
