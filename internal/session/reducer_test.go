package session

import (
	"math"
	"testing"
	"time"

	"github.com/theirongolddev/cxburn/internal/model"
)

func ptr(f float64) *float64 { return &f }

func event(ts time.Time, in, cached, out, reasoning int64) model.TokenEvent {
	return model.TokenEvent{
		RawTimestamp:          ts.Format(time.RFC3339),
		Timestamp:             model.At(ts),
		InputTokens:           in,
		CachedInputTokens:     cached,
		OutputTokens:          out,
		ReasoningOutputTokens: reasoning,
		TotalTokens:           in + out,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestReduce_InputInclusivePricing(t *testing.T) {
	evs := []model.TokenEvent{event(at(6, 0), 10000, 2000, 500, 0)}
	rates := &model.RateTable{Input: 0.005, Output: 0.015}

	agg := Reduce(evs, at(5, 0), at(10, 0), rates, false)
	if agg.CostUSD == nil {
		t.Fatal("cost should be present with a rate table")
	}
	if !approx(*agg.CostUSD, 0.0575) {
		t.Errorf("cost = %v, want 0.0575", *agg.CostUSD)
	}
}

func TestReduce_CachedPricing(t *testing.T) {
	evs := []model.TokenEvent{event(at(6, 0), 10000, 2000, 500, 0)}
	rates := &model.RateTable{Input: 0.005, CachedInput: ptr(0.001), Output: 0.015}

	agg := Reduce(evs, at(5, 0), at(10, 0), rates, true)
	if agg.CostUSD == nil || !approx(*agg.CostUSD, 0.0495) {
		t.Errorf("cost = %v, want 0.0495", agg.CostUSD)
	}
}

func TestReduce_AutoCachedWhenInputZero(t *testing.T) {
	evs := []model.TokenEvent{event(at(6, 0), 0, 4000, 0, 0)}
	rates := &model.RateTable{Input: 0.005, CachedInput: ptr(0.001), Output: 0.015}

	agg := Reduce(evs, at(5, 0), at(10, 0), rates, false)
	if !approx(agg.Cost(), 0.004) {
		t.Errorf("cost = %v, want 0.004 (cached rate applied)", agg.Cost())
	}
}

func TestReduce_ReasoningFallsBackToOutputRate(t *testing.T) {
	evs := []model.TokenEvent{event(at(6, 0), 0, 0, 1000, 1000)}
	rates := &model.RateTable{Input: 0.005, Output: 0.015}

	agg := Reduce(evs, at(5, 0), at(10, 0), rates, false)
	if !approx(agg.Cost(), 0.03) {
		t.Errorf("cost = %v, want 0.03", agg.Cost())
	}
}

func TestReduce_NoRatesOmitsCost(t *testing.T) {
	evs := []model.TokenEvent{event(at(6, 0), 100, 0, 10, 0)}
	agg := Reduce(evs, at(5, 0), at(10, 0), nil, false)
	if agg.CostUSD != nil {
		t.Errorf("cost = %v, want nil", *agg.CostUSD)
	}
	if agg.Events != 1 || agg.InputTokens != 100 {
		t.Errorf("tokens should still be summed: %+v", agg)
	}

	empty := Reduce(nil, at(5, 0), at(10, 0), &model.RateTable{Input: 1}, false)
	if empty.CostUSD == nil || *empty.CostUSD != 0 {
		t.Errorf("empty reduction with rates should cost 0, got %v", empty.CostUSD)
	}
}

func TestReduce_ClosedInterval(t *testing.T) {
	start, end := at(5, 0), at(10, 0)
	evs := []model.TokenEvent{
		event(start.Add(-time.Microsecond), 1, 0, 0, 0),
		event(start, 10, 0, 0, 0),
		event(at(7, 0), 100, 0, 0, 0),
		event(end, 1000, 0, 0, 0),
		event(end.Add(time.Microsecond), 10000, 0, 0, 0),
		{InputTokens: 100000}, // absent timestamp
	}
	agg := Reduce(evs, start, end, nil, false)
	if agg.Events != 3 || agg.InputTokens != 1110 {
		t.Errorf("events=%d input=%d, want 3 and 1110", agg.Events, agg.InputTokens)
	}
}

func TestReduce_Additive(t *testing.T) {
	rates := &model.RateTable{Input: 0.00125, CachedInput: ptr(0.000125), Output: 0.01}
	a := []model.TokenEvent{event(at(6, 0), 5000, 1000, 300, 50), event(at(6, 30), 700, 0, 20, 0)}
	b := []model.TokenEvent{event(at(8, 0), 9000, 8000, 1200, 400)}

	whole := Reduce(append(append([]model.TokenEvent{}, a...), b...), at(5, 0), at(10, 0), rates, true)
	parts := Reduce(a, at(5, 0), at(10, 0), rates, true).Merge(Reduce(b, at(5, 0), at(10, 0), rates, true))

	if whole.Events != parts.Events || whole.InputTokens != parts.InputTokens ||
		whole.CachedInputTokens != parts.CachedInputTokens || whole.OutputTokens != parts.OutputTokens ||
		whole.ReasoningOutputTokens != parts.ReasoningOutputTokens || whole.TotalTokens != parts.TotalTokens {
		t.Errorf("token sums differ: whole=%+v parts=%+v", whole, parts)
	}
	if !approx(whole.Cost(), parts.Cost()) {
		t.Errorf("cost whole=%v parts=%v", whole.Cost(), parts.Cost())
	}
}

func TestReduce_Idempotent(t *testing.T) {
	evs := []model.TokenEvent{event(at(6, 0), 10000, 2000, 500, 10)}
	rates := &model.RateTable{Input: 0.005, Output: 0.015}
	first := Reduce(evs, at(5, 0), at(10, 0), rates, false)
	second := Reduce(evs, at(5, 0), at(10, 0), rates, false)
	if first.Events != second.Events || first.TotalTokens != second.TotalTokens || *first.CostUSD != *second.CostUSD {
		t.Errorf("Reduce not idempotent: %+v vs %+v", first, second)
	}
	if first.CostUSD == second.CostUSD {
		t.Error("aggregates share cost storage")
	}
}

func TestReduceWith_PerModelRates(t *testing.T) {
	cheap := event(at(6, 0), 1000, 0, 0, 0)
	cheap.Model = "mini"
	dear := event(at(6, 5), 1000, 0, 0, 0)
	dear.Model = "big"

	rates := func(m string) model.RateTable {
		if m == "big" {
			return model.RateTable{Input: 0.01}
		}
		return model.RateTable{Input: 0.001}
	}
	agg := ReduceWith([]model.TokenEvent{cheap, dear}, at(5, 0), at(10, 0), rates, false)
	if !approx(agg.Cost(), 0.011) {
		t.Errorf("cost = %v, want 0.011", agg.Cost())
	}
}
