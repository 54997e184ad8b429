package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/theirongolddev/cxburn/internal/model"
)

func TestPriceAndBreakdown(t *testing.T) {
	cached := 0.001
	rates := func(m string) model.RateTable {
		if m == "big" {
			return model.RateTable{Input: 0.01, CachedInput: &cached, Output: 0.03}
		}
		return model.RateTable{Input: 0.001, Output: 0.002}
	}
	ts := model.At(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	evs := []model.TokenEvent{
		{Timestamp: ts, Model: "big", InputTokens: 2000, CachedInputTokens: 1000, OutputTokens: 1000},
		{Timestamp: ts, Model: "", InputTokens: 1000, ReasoningOutputTokens: 1000},
	}

	priced := Price(evs, rates, true)
	if priced[0].CostUSD == nil || math.Abs(*priced[0].CostUSD-(0.01+0.001+0.03)) > 1e-12 {
		t.Errorf("big cost = %v", priced[0].CostUSD)
	}

	totals, models := AggregateCostBreakdown(evs, rates, true)
	if math.Abs(totals.Reasoning-0.002) > 1e-12 {
		t.Errorf("reasoning cost = %v, want 0.002 (output rate)", totals.Reasoning)
	}
	if len(models) != 2 || models[0].Model != "big" || models[1].Model != "(unknown)" {
		t.Errorf("models = %+v", models)
	}
	sum := Summarize(priced).Cost()
	if math.Abs(totals.Total()-sum) > 1e-12 {
		t.Errorf("breakdown total %v != priced sum %v", totals.Total(), sum)
	}

	if unpriced := Price(evs, nil, false); unpriced[0].CostUSD != nil {
		t.Error("nil rates should leave costs nil")
	}
	if _, m := AggregateCostBreakdown(evs, nil, false); m != nil {
		t.Error("nil rates should give no breakdown")
	}
}
