package prices

import (
	"encoding/json"
	"fmt"

	"github.com/theirongolddev/cxburn/internal/config"
	"github.com/theirongolddev/cxburn/internal/model"
)

// Key candidates for rates quoted per 1k tokens, most specific first.
var per1kKeys = map[string][]string{
	"input": {
		"input_cost_per_1k_tokens", "input_per_1k", "prompt_cost_per_1k_tokens", "prompt_per_1k",
		"prompt_input_cost_per_1k_tokens", "input_per_1k_tokens", "input_1k", "input", "prompt",
	},
	"output": {
		"output_cost_per_1k_tokens", "output_per_1k", "completion_cost_per_1k_tokens", "completion_per_1k",
		"prompt_output_cost_per_1k_tokens", "output", "completion",
	},
	"reasoning":    {"reasoning_cost_per_1k_tokens", "reasoning_per_1k", "reasoning"},
	"cached_input": {"cached_input_cost_per_1k_tokens", "cached_input_per_1k", "cached_input", "cache"},
}

// Key candidates for rates quoted per 1M tokens.
var per1mKeys = map[string][]string{
	"input": {
		"input_cost_per_1m", "prompt_input_cost_per_1m", "input_per_1m", "prompt_per_1m",
		"input_cost_per_million_tokens", "input_per_million",
	},
	"output": {
		"output_cost_per_1m", "completion_cost_per_1m", "output_per_1m", "completion_per_1m",
		"output_cost_per_million_tokens", "output_per_million",
	},
	"reasoning": {
		"reasoning_cost_per_1m", "reasoning_per_1m", "reasoning_cost_per_million_tokens", "reasoning_per_million",
	},
	"cached_input": {
		"prompt_cache_read_per_1m", "cache_read_per_1m", "prompt_cache_read_per_million", "cached_input_per_1m",
	},
}

var rateKinds = []string{"input", "output", "reasoning", "cached_input"}

// Normalize converts a raw price list into a book. It accepts a
// {"models": {...}} map, a {"data": [...]} envelope, a bare list of
// entries, or a flat rate object, and adds "-latest" aliases.
func Normalize(raw []byte) (*config.PriceBook, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("prices: decoding list: %w", err)
	}

	book := &config.PriceBook{
		Models:  map[string]model.RateTable{},
		Aliases: map[string]string{},
	}

	switch v := doc.(type) {
	case map[string]any:
		if models, ok := v["models"].(map[string]any); ok {
			for name, info := range models {
				obj, _ := info.(map[string]any)
				book.Models[name], _ = extractRates(obj)
			}
		}
		if data, ok := v["data"].([]any); ok {
			addEntries(book, data)
		}
		if flat, ok := extractRates(v); ok {
			book.Default = flat
		}
	case []any:
		addEntries(book, v)
	default:
		return nil, fmt.Errorf("prices: unexpected JSON %T", doc)
	}

	for name := range book.Models {
		latest := name + "-latest"
		if _, exists := book.Models[latest]; !exists {
			book.Aliases[latest] = name
		}
	}
	return book, nil
}

func addEntries(book *config.PriceBook, items []any) {
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := firstString(obj, "model", "name", "id")
		if name == "" {
			continue
		}
		book.Models[name], _ = extractRates(obj)
	}
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// extractRates reads per-1k rates from obj, falling back to per-1M keys
// for kinds that are missing or zero.
func extractRates(obj map[string]any) (model.RateTable, bool) {
	found := map[string]float64{}
	for _, kind := range rateKinds {
		for _, key := range per1kKeys[kind] {
			if f, ok := obj[key].(float64); ok {
				found[kind] = f
				break
			}
		}
	}
	for _, kind := range rateKinds {
		if found[kind] > 0 {
			continue
		}
		for _, key := range per1mKeys[kind] {
			if f, ok := obj[key].(float64); ok {
				found[kind] = f / 1000
				break
			}
		}
	}
	if len(found) == 0 {
		return model.RateTable{}, false
	}

	r := model.RateTable{Input: found["input"], Output: found["output"]}
	if v, ok := found["cached_input"]; ok {
		r.CachedInput = &v
	}
	if v, ok := found["reasoning"]; ok {
		r.Reasoning = &v
	}
	return r, true
}
