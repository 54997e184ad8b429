package pipeline

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/theirongolddev/cxburn/internal/model"
)

const dayLayout = "2006-01-02"

// Summarize folds every event into one aggregate. The cost is present
// only if at least one event was priced.
func Summarize(events []model.PricedEvent) model.Aggregate {
	var agg model.Aggregate
	for _, ev := range events {
		agg.Add(ev)
	}
	return agg
}

// FilterSince keeps events at or after since. A zero since keeps
// everything; otherwise events without an instant are dropped.
func FilterSince(events []model.PricedEvent, since time.Time) []model.PricedEvent {
	if since.IsZero() {
		return events
	}
	return lo.Filter(events, func(ev model.PricedEvent, _ int) bool {
		return ev.Timestamp.Valid && !ev.Timestamp.Time.Before(since)
	})
}

// FilterWindow keeps events inside the closed window.
func FilterWindow(events []model.PricedEvent, w model.SessionWindow) []model.PricedEvent {
	return lo.Filter(events, func(ev model.PricedEvent, _ int) bool {
		return ev.Timestamp.Valid && w.Contains(ev.Timestamp.Time)
	})
}

// LastN returns the trailing n events (all when n <= 0).
func LastN(events []model.PricedEvent, n int) []model.PricedEvent {
	if n <= 0 || n >= len(events) {
		return events
	}
	return events[len(events)-n:]
}

// AggregateDaily groups events by UTC calendar day, oldest first.
func AggregateDaily(events []model.PricedEvent) []model.DailyStats {
	byDay := lo.GroupBy(
		lo.Filter(events, func(ev model.PricedEvent, _ int) bool { return ev.Timestamp.Valid }),
		func(ev model.PricedEvent) string { return ev.Timestamp.Time.UTC().Format(dayLayout) },
	)

	days := make([]model.DailyStats, 0, len(byDay))
	for _, day := range lo.Keys(byDay) {
		days = append(days, model.DailyStats{Date: day, Aggregate: Summarize(byDay[day])})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// FillMissingDays returns one row per UTC day from start to end inclusive,
// using zero rows for days without events. When any row is priced, the
// zero rows carry a zero cost too.
func FillMissingDays(rows []model.DailyStats, start, end time.Time) []model.DailyStats {
	if len(rows) == 0 && start.IsZero() {
		return rows
	}
	if start.IsZero() {
		if t, err := time.Parse(dayLayout, rows[0].Date); err == nil {
			start = t
		}
	}
	if end.IsZero() {
		end = time.Now()
	}

	priced := lo.SomeBy(rows, func(r model.DailyStats) bool { return r.CostUSD != nil })
	byDate := lo.KeyBy(rows, func(r model.DailyStats) string { return r.Date })

	start = start.UTC()
	end = end.UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var out []model.DailyStats
	for !day.After(last) {
		key := day.Format(dayLayout)
		row, ok := byDate[key]
		if !ok {
			row = model.DailyStats{Date: key}
		}
		if priced && row.CostUSD == nil {
			row.AddCost(0)
		}
		out = append(out, row)
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// TrimLeadingZeroDays drops leading days with no tokens and no cost.
func TrimLeadingZeroDays(rows []model.DailyStats) []model.DailyStats {
	i := 0
	for i < len(rows) && isZeroDay(rows[i]) {
		i++
	}
	return rows[i:]
}

func isZeroDay(r model.DailyStats) bool {
	return r.InputTokens == 0 && r.CachedInputTokens == 0 && r.OutputTokens == 0 &&
		r.ReasoningOutputTokens == 0 && r.TotalTokens == 0 && r.Cost() == 0
}

// AggregateModels computes per-model statistics, most expensive first.
// Events with no model are grouped under "(unknown)".
func AggregateModels(events []model.PricedEvent) []model.ModelStats {
	byModel := lo.GroupBy(events, func(ev model.PricedEvent) string {
		if ev.Model == "" {
			return "(unknown)"
		}
		return ev.Model
	})

	var totalTokens int64
	models := make([]model.ModelStats, 0, len(byModel))
	for name, evs := range byModel {
		ms := model.ModelStats{Model: name, Aggregate: Summarize(evs)}
		totalTokens += ms.TotalTokens
		models = append(models, ms)
	}
	for i := range models {
		if totalTokens > 0 {
			models[i].SharePercent = float64(models[i].TotalTokens) / float64(totalTokens) * 100
		}
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].Cost() != models[j].Cost() {
			return models[i].Cost() > models[j].Cost()
		}
		if models[i].TotalTokens != models[j].TotalTokens {
			return models[i].TotalTokens > models[j].TotalTokens
		}
		return models[i].Model < models[j].Model
	})
	return models
}

// AggregateHourly buckets events by hour of day in loc.
func AggregateHourly(events []model.PricedEvent, loc *time.Location) []model.HourlyStats {
	if loc == nil {
		loc = time.Local
	}
	hours := make([]model.HourlyStats, 24)
	for i := range hours {
		hours[i].Hour = i
	}
	for _, ev := range events {
		if !ev.Timestamp.Valid {
			continue
		}
		h := ev.Timestamp.Time.In(loc).Hour()
		hours[h].Add(ev)
	}
	return hours
}
