// Package model defines domain types for cxburn events, windows and aggregates.
package model

import "time"

// Instant is a UTC point in time that may be absent.
// An absent instant never compares equal to or ordered against anything.
type Instant struct {
	Time  time.Time
	Valid bool
}

// At returns a present instant normalised to UTC.
func At(t time.Time) Instant {
	return Instant{Time: t.UTC(), Valid: true}
}

// TokenEvent is one TokenCount record extracted from the Codex log.
type TokenEvent struct {
	RawTimestamp          string
	Timestamp             Instant
	InputTokens           int64
	CachedInputTokens     int64
	OutputTokens          int64
	ReasoningOutputTokens int64
	TotalTokens           int64
	Model                 string // empty when unknown or not requested
}

// PricedEvent is a TokenEvent annotated with its cost. CostUSD is nil
// when no rate table was available.
type PricedEvent struct {
	TokenEvent
	CostUSD *float64
}

// RateTable holds USD-per-1000-token rates for one model.
// Nil CachedInput falls back to Input, nil Reasoning falls back to Output.
type RateTable struct {
	Input       float64
	CachedInput *float64
	Output      float64
	Reasoning   *float64
}

// CachedRate returns the cached-input rate, falling back to the input rate.
func (r RateTable) CachedRate() float64 {
	if r.CachedInput != nil {
		return *r.CachedInput
	}
	return r.Input
}

// ReasoningRate returns the reasoning rate, falling back to the output rate.
func (r RateTable) ReasoningRate() float64 {
	if r.Reasoning != nil {
		return *r.Reasoning
	}
	return r.Output
}

// IsZero reports whether every rate resolves to zero.
func (r RateTable) IsZero() bool {
	return r.Input == 0 && r.Output == 0 && r.CachedRate() == 0 && r.ReasoningRate() == 0
}

// SessionWindow is the current usage period. End is always Start plus the gap.
type SessionWindow struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window length.
func (w SessionWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls in the closed interval [Start, End].
func (w SessionWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Elapsed returns the fraction of the window that has passed at now, clamped to [0,1].
func (w SessionWindow) Elapsed(now time.Time) float64 {
	total := w.Duration()
	if total <= 0 {
		return 0
	}
	f := float64(now.Sub(w.Start)) / float64(total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// SessionStats holds one inactivity-delimited session from the log history.
type SessionStats struct {
	StartTime     time.Time
	EndTime       time.Time
	DurationSecs  int64
	GapToNextSecs *int64 // nil for the most recent session
	Aggregate
}
