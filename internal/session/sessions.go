package session

import (
	"sort"
	"time"

	"github.com/theirongolddev/cxburn/internal/model"
)

// DefaultReportGap splits the history report into sessions.
const DefaultReportGap = 10 * time.Minute

// BuildSessions groups priced events into sessions separated by more than
// gap of inactivity. Events without an instant are skipped. The result is
// oldest first; every session but the last records the gap to the next.
func BuildSessions(events []model.PricedEvent, gap time.Duration) []model.SessionStats {
	if gap <= 0 {
		gap = DefaultReportGap
	}

	evs := make([]model.PricedEvent, 0, len(events))
	for _, ev := range events {
		if ev.Timestamp.Valid {
			evs = append(evs, ev)
		}
	}
	sort.SliceStable(evs, func(i, j int) bool {
		return evs[i].Timestamp.Time.Before(evs[j].Timestamp.Time)
	})

	var (
		out []model.SessionStats
		cur *model.SessionStats
	)
	for _, ev := range evs {
		ts := ev.Timestamp.Time
		if cur == nil || ts.Sub(cur.EndTime) > gap {
			out = append(out, model.SessionStats{StartTime: ts, EndTime: ts})
			cur = &out[len(out)-1]
		}
		cur.EndTime = ts
		cur.Add(ev)
	}

	for i := range out {
		out[i].DurationSecs = int64(out[i].EndTime.Sub(out[i].StartTime).Seconds())
		if i+1 < len(out) {
			g := int64(out[i+1].StartTime.Sub(out[i].EndTime).Seconds())
			out[i].GapToNextSecs = &g
		}
	}
	return out
}
