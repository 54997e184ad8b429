package session

import (
	"testing"
	"time"

	"github.com/theirongolddev/cxburn/internal/model"
)

func priced(ts time.Time, total int64, cost float64) model.PricedEvent {
	ev := event(ts, total, 0, 0, 0)
	ev.TotalTokens = total
	return model.PricedEvent{TokenEvent: ev, CostUSD: &cost}
}

func TestBuildSessions(t *testing.T) {
	evs := []model.PricedEvent{
		priced(at(9, 0), 10, 0.1),
		priced(at(9, 5), 20, 0.2),
		priced(at(9, 15), 30, 0.3), // exactly 10m gap stays in the session
		priced(at(10, 0), 40, 0.4),
		{TokenEvent: model.TokenEvent{TotalTokens: 999}},
	}

	got := BuildSessions(evs, 10*time.Minute)
	if len(got) != 2 {
		t.Fatalf("sessions = %d, want 2", len(got))
	}

	first := got[0]
	if first.Events != 3 || first.TotalTokens != 60 {
		t.Errorf("first = %+v", first)
	}
	if first.DurationSecs != 15*60 {
		t.Errorf("first duration = %d, want 900", first.DurationSecs)
	}
	if first.GapToNextSecs == nil || *first.GapToNextSecs != 45*60 {
		t.Errorf("first gap = %v, want 2700", first.GapToNextSecs)
	}
	if !approx(first.Cost(), 0.6) {
		t.Errorf("first cost = %v, want 0.6", first.Cost())
	}

	last := got[1]
	if last.GapToNextSecs != nil {
		t.Errorf("last session gap should be nil, got %d", *last.GapToNextSecs)
	}
	if last.DurationSecs != 0 || last.Events != 1 {
		t.Errorf("last = %+v", last)
	}
}

func TestBuildSessions_SortsInput(t *testing.T) {
	evs := []model.PricedEvent{priced(at(12, 0), 1, 0), priced(at(9, 0), 1, 0)}
	got := BuildSessions(evs, 10*time.Minute)
	if len(got) != 2 || !got[0].StartTime.Equal(at(9, 0)) {
		t.Errorf("sessions not in chronological order: %+v", got)
	}
}

func TestBuildSessions_Empty(t *testing.T) {
	if got := BuildSessions(nil, time.Minute); len(got) != 0 {
		t.Errorf("BuildSessions(nil) = %v", got)
	}
}
