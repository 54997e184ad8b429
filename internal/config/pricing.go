package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/theirongolddev/cxburn/internal/model"
)

// ErrUnknownPriceFormat is returned for price files that are neither a
// flat rate object nor a {default, models, aliases} book.
var ErrUnknownPriceFormat = errors.New("unrecognised price file format")

// DefaultForcedRates apply when every resolved rate is zero.
var DefaultForcedRates = model.RateTable{
	Input:       0.005,
	CachedInput: ptr(0.005),
	Output:      0.015,
	Reasoning:   ptr(0.015),
}

// DefaultPricing maps OpenAI model base names to USD per 1k tokens.
var DefaultPricing = map[string]model.RateTable{
	"gpt-5":             {Input: 0.00125, CachedInput: ptr(0.000125), Output: 0.01},
	"gpt-5-mini":        {Input: 0.00025, CachedInput: ptr(0.000025), Output: 0.002},
	"gpt-5-nano":        {Input: 0.00005, CachedInput: ptr(0.000005), Output: 0.0004},
	"gpt-4.1":           {Input: 0.002, CachedInput: ptr(0.0005), Output: 0.008},
	"gpt-4.1-mini":      {Input: 0.0004, CachedInput: ptr(0.0001), Output: 0.0016},
	"gpt-4o":            {Input: 0.0025, CachedInput: ptr(0.00125), Output: 0.01},
	"o3":                {Input: 0.002, CachedInput: ptr(0.0005), Output: 0.008},
	"o4-mini":           {Input: 0.0011, CachedInput: ptr(0.000275), Output: 0.0044},
	"codex-mini-latest": {Input: 0.0015, CachedInput: ptr(0.000375), Output: 0.006},
}

// defaultAliases maps Codex model names onto priced base models.
var defaultAliases = map[string]string{
	"gpt-5-codex": "gpt-5",
	"codex-mini":  "codex-mini-latest",
}

func ptr(f float64) *float64 { return &f }

// PriceBook resolves model names to rate tables. Models missing from the
// book get Default.
type PriceBook struct {
	Default model.RateTable
	Models  map[string]model.RateTable
	Aliases map[string]string
}

// BuiltinBook returns a book over DefaultPricing with a zero default.
func BuiltinBook() *PriceBook {
	b := &PriceBook{
		Models:  make(map[string]model.RateTable, len(DefaultPricing)),
		Aliases: make(map[string]string, len(defaultAliases)),
	}
	for k, v := range DefaultPricing {
		b.Models[k] = v
	}
	for k, v := range defaultAliases {
		b.Aliases[k] = v
	}
	return b
}

// NormalizeModelName strips date suffixes from model identifiers.
// e.g., "gpt-4.1-2025-04-14" -> "gpt-4.1", "o3-20250416" -> "o3"
func NormalizeModelName(raw string) string {
	parts := strings.Split(raw, "-")
	// -YYYY-MM-DD
	if n := len(parts); n >= 4 && isAllDigits(parts[n-3]) && len(parts[n-3]) == 4 &&
		isAllDigits(parts[n-2]) && len(parts[n-2]) == 2 && isAllDigits(parts[n-1]) && len(parts[n-1]) == 2 {
		return strings.Join(parts[:n-3], "-")
	}
	// -YYYYMMDD
	if n := len(parts); n >= 2 && isAllDigits(parts[n-1]) && len(parts[n-1]) >= 8 {
		return strings.Join(parts[:n-1], "-")
	}
	return raw
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Lookup returns the rates for name and whether the book knows the model.
// Unknown models get Default.
func (b *PriceBook) Lookup(name string) (model.RateTable, bool) {
	name = strings.TrimSpace(name)
	candidates := []string{name, NormalizeModelName(name)}
	for _, c := range candidates {
		if alias, ok := b.Aliases[c]; ok {
			c = alias
		}
		if r, ok := b.Models[c]; ok {
			return r, true
		}
	}
	return b.Default, false
}

// Override patches the rates of one model (or the default when name is
// empty), creating the model entry from its resolved rates if needed.
func (b *PriceBook) Override(name string, o RateOverride) {
	var base model.RateTable
	if name == "" {
		base = b.Default
	} else {
		base, _ = b.Lookup(name)
	}
	if o.Input != nil {
		base.Input = *o.Input
	}
	if o.CachedInput != nil {
		base.CachedInput = ptr(*o.CachedInput)
	}
	if o.Output != nil {
		base.Output = *o.Output
	}
	if o.Reasoning != nil {
		base.Reasoning = ptr(*o.Reasoning)
	}
	if name == "" {
		b.Default = base
		return
	}
	if b.Models == nil {
		b.Models = map[string]model.RateTable{}
	}
	b.Models[name] = base
}

// Resolver picks the rate table for each event. ForcedModel, when set,
// replaces the event's own model name.
type Resolver struct {
	Book        *PriceBook
	ForcedModel string
}

// Rates resolves the table for an event model, falling back to
// DefaultForcedRates when everything resolves to zero.
func (r *Resolver) Rates(eventModel string) model.RateTable {
	name := eventModel
	if r.ForcedModel != "" {
		name = r.ForcedModel
	}
	var rates model.RateTable
	if r.Book != nil {
		rates, _ = r.Book.Lookup(name)
	}
	if rates.IsZero() {
		return DefaultForcedRates
	}
	return rates
}

// CalculateCost computes the USD cost of one event under a rate table.
func CalculateCost(r model.RateTable, ev model.TokenEvent, cachedPricing bool) float64 {
	return Breakdown(r, ev, cachedPricing).Total()
}

// Breakdown splits one event's cost by token kind. With cachedPricing,
// cached tokens bill at the cached rate and only the remainder at the
// input rate; otherwise all input bills at the input rate. Events
// reporting only cached input always use cached pricing.
func Breakdown(r model.RateTable, ev model.TokenEvent, cachedPricing bool) model.CostBreakdown {
	in := float64(ev.InputTokens)
	cached := float64(ev.CachedInputTokens)

	var b model.CostBreakdown
	if cachedPricing || (in <= 0 && cached > 0) {
		b.Input = max(in-cached, 0) / 1000 * r.Input
		b.CachedInput = cached / 1000 * r.CachedRate()
	} else {
		b.Input = in / 1000 * r.Input
	}
	b.Output = float64(ev.OutputTokens) / 1000 * r.Output
	b.Reasoning = float64(ev.ReasoningOutputTokens) / 1000 * r.ReasoningRate()
	return b
}

// rateJSON is the on-disk form of a rate table, USD per 1k tokens.
type rateJSON struct {
	Input       *float64 `json:"input"`
	CachedInput *float64 `json:"cached_input"`
	Output      *float64 `json:"output"`
	Reasoning   *float64 `json:"reasoning"`
}

func (j rateJSON) table() model.RateTable {
	var r model.RateTable
	if j.Input != nil {
		r.Input = *j.Input
	}
	if j.Output != nil {
		r.Output = *j.Output
	}
	r.CachedInput = j.CachedInput
	r.Reasoning = j.Reasoning
	return r
}

func (j rateJSON) empty() bool {
	return j.Input == nil && j.CachedInput == nil && j.Output == nil && j.Reasoning == nil
}

type bookJSON struct {
	Default rateJSON            `json:"default"`
	Models  map[string]rateJSON `json:"models"`
	Aliases map[string]string   `json:"aliases"`
}

// ParsePriceBook decodes either a flat {input, output, reasoning?,
// cached_input?} object or a {default, models, aliases} book.
func ParsePriceBook(data []byte) (*PriceBook, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding prices: %w", err)
	}

	if _, ok := probe["models"]; ok {
		var bj bookJSON
		if err := json.Unmarshal(data, &bj); err != nil {
			return nil, fmt.Errorf("decoding price book: %w", err)
		}
		b := &PriceBook{
			Default: bj.Default.table(),
			Models:  make(map[string]model.RateTable, len(bj.Models)),
			Aliases: bj.Aliases,
		}
		for name, r := range bj.Models {
			b.Models[name] = r.table()
		}
		if b.Aliases == nil {
			b.Aliases = map[string]string{}
		}
		return b, nil
	}

	var flat rateJSON
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("decoding flat prices: %w", err)
	}
	if flat.empty() {
		return nil, ErrUnknownPriceFormat
	}
	return &PriceBook{Default: flat.table(), Aliases: map[string]string{}}, nil
}

// LoadPriceBook reads a JSON price file.
func LoadPriceBook(path string) (*PriceBook, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied prices path
	if err != nil {
		return nil, fmt.Errorf("reading prices file: %w", err)
	}
	b, err := ParsePriceBook(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ApplyOverrides patches the book from config. The key "default" patches
// the fallback rates.
func (b *PriceBook) ApplyOverrides(overrides map[string]RateOverride) {
	for name, o := range overrides {
		if name == "default" {
			name = ""
		}
		b.Override(name, o)
	}
}
