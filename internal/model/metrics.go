package model

// Aggregate holds token sums and an optional cost over a set of events.
type Aggregate struct {
	Events                int
	InputTokens           int64
	CachedInputTokens     int64
	OutputTokens          int64
	ReasoningOutputTokens int64
	TotalTokens           int64
	CostUSD               *float64 // nil when cost is unknown
}

// Add folds one priced event into the aggregate.
func (a *Aggregate) Add(ev PricedEvent) {
	a.Events++
	a.InputTokens += ev.InputTokens
	a.CachedInputTokens += ev.CachedInputTokens
	a.OutputTokens += ev.OutputTokens
	a.ReasoningOutputTokens += ev.ReasoningOutputTokens
	a.TotalTokens += ev.TotalTokens
	if ev.CostUSD != nil {
		a.AddCost(*ev.CostUSD)
	}
}

// AddCost adds c to the cost, materialising it if it was unknown.
func (a *Aggregate) AddCost(c float64) {
	if a.CostUSD == nil {
		v := 0.0
		a.CostUSD = &v
	}
	*a.CostUSD += c
}

// Merge returns the field-wise sum of a and b.
func (a Aggregate) Merge(b Aggregate) Aggregate {
	out := Aggregate{
		Events:                a.Events + b.Events,
		InputTokens:           a.InputTokens + b.InputTokens,
		CachedInputTokens:     a.CachedInputTokens + b.CachedInputTokens,
		OutputTokens:          a.OutputTokens + b.OutputTokens,
		ReasoningOutputTokens: a.ReasoningOutputTokens + b.ReasoningOutputTokens,
		TotalTokens:           a.TotalTokens + b.TotalTokens,
	}
	if a.CostUSD != nil {
		out.AddCost(*a.CostUSD)
	}
	if b.CostUSD != nil {
		out.AddCost(*b.CostUSD)
	}
	return out
}

// Cost returns the cost or zero when unknown.
func (a Aggregate) Cost() float64 {
	if a.CostUSD == nil {
		return 0
	}
	return *a.CostUSD
}

// SessionAggregate is the reduction of events against a SessionWindow.
type SessionAggregate = Aggregate

// DailyStats holds metrics for a single UTC calendar day.
type DailyStats struct {
	Date string // YYYY-MM-DD
	Aggregate
}

// ModelStats holds aggregated metrics for a single model.
type ModelStats struct {
	Model        string
	SharePercent float64
	Aggregate
}

// HourlyStats holds token usage for one hour of the day.
type HourlyStats struct {
	Hour int
	Aggregate
}

// CostBreakdown splits cost by token kind.
type CostBreakdown struct {
	Input       float64
	CachedInput float64
	Output      float64
	Reasoning   float64
}

// Total returns the sum of all parts.
func (c CostBreakdown) Total() float64 {
	return c.Input + c.CachedInput + c.Output + c.Reasoning
}
