package pipeline

import (
	"sort"

	"github.com/theirongolddev/cxburn/internal/config"
	"github.com/theirongolddev/cxburn/internal/model"
	"github.com/theirongolddev/cxburn/internal/session"
)

// ModelCostBreakdown holds cost components for one model.
type ModelCostBreakdown struct {
	Model string
	model.CostBreakdown
}

// Price annotates events with their cost. A nil rates func leaves every
// cost nil.
func Price(events []model.TokenEvent, rates session.RateFunc, cachedPricing bool) []model.PricedEvent {
	out := make([]model.PricedEvent, len(events))
	for i, ev := range events {
		out[i] = PriceOne(ev, rates, cachedPricing)
	}
	return out
}

// PriceOne annotates a single event.
func PriceOne(ev model.TokenEvent, rates session.RateFunc, cachedPricing bool) model.PricedEvent {
	pe := model.PricedEvent{TokenEvent: ev}
	if rates == nil {
		return pe
	}
	b := config.Breakdown(rates(ev.Model), ev, cachedPricing)
	c := b.Total()
	pe.CostUSD = &c
	return pe
}

// AggregateCostBreakdown computes token-kind and per-model cost splits,
// models sorted by total cost descending.
func AggregateCostBreakdown(events []model.TokenEvent, rates session.RateFunc, cachedPricing bool) (model.CostBreakdown, []ModelCostBreakdown) {
	var totals model.CostBreakdown
	if rates == nil {
		return totals, nil
	}

	byModel := make(map[string]*ModelCostBreakdown)
	for _, ev := range events {
		b := config.Breakdown(rates(ev.Model), ev, cachedPricing)
		totals.Input += b.Input
		totals.CachedInput += b.CachedInput
		totals.Output += b.Output
		totals.Reasoning += b.Reasoning

		name := ev.Model
		if name == "" {
			name = "(unknown)"
		}
		mb, ok := byModel[name]
		if !ok {
			mb = &ModelCostBreakdown{Model: name}
			byModel[name] = mb
		}
		mb.Input += b.Input
		mb.CachedInput += b.CachedInput
		mb.Output += b.Output
		mb.Reasoning += b.Reasoning
	}

	models := make([]ModelCostBreakdown, 0, len(byModel))
	for _, mb := range byModel {
		models = append(models, *mb)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].Total() > models[j].Total()
	})
	return totals, models
}
