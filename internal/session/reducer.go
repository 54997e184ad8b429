package session

import (
	"time"

	"github.com/theirongolddev/cxburn/internal/config"
	"github.com/theirongolddev/cxburn/internal/model"
)

// RateFunc resolves the rate table for an event's model. A nil RateFunc
// means pricing is unavailable.
type RateFunc func(modelName string) model.RateTable

// Reduce sums the events falling in the closed interval [start, end] and
// prices them with a single rate table. A nil table leaves CostUSD nil.
func Reduce(events []model.TokenEvent, start, end time.Time, rates *model.RateTable, cachedPricing bool) model.SessionAggregate {
	var fn RateFunc
	if rates != nil {
		r := *rates
		fn = func(string) model.RateTable { return r }
	}
	return ReduceWith(events, start, end, fn, cachedPricing)
}

// ReduceWith is Reduce with per-model rate resolution.
func ReduceWith(events []model.TokenEvent, start, end time.Time, rates RateFunc, cachedPricing bool) model.SessionAggregate {
	var agg model.SessionAggregate
	if rates != nil {
		agg.AddCost(0)
	}
	for _, ev := range events {
		if !ev.Timestamp.Valid {
			continue
		}
		ts := ev.Timestamp.Time
		if ts.Before(start) || ts.After(end) {
			continue
		}
		pe := model.PricedEvent{TokenEvent: ev}
		if rates != nil {
			c := config.CalculateCost(rates(ev.Model), ev, cachedPricing)
			pe.CostUSD = &c
		}
		agg.Add(pe)
	}
	return agg
}

// ReduceWindow reduces events against w.
func ReduceWindow(events []model.TokenEvent, w model.SessionWindow, rates RateFunc, cachedPricing bool) model.SessionAggregate {
	return ReduceWith(events, w.Start, w.End, rates, cachedPricing)
}
