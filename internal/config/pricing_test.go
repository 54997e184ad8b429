package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/theirongolddev/cxburn/internal/model"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestNormalizeModelName(t *testing.T) {
	tests := map[string]string{
		"gpt-4.1-2025-04-14": "gpt-4.1",
		"o3-20250416":        "o3",
		"gpt-5":              "gpt-5",
		"gpt-5-codex":        "gpt-5-codex",
		"codex-mini-latest":  "codex-mini-latest",
		"":                   "",
	}
	for in, want := range tests {
		if got := NormalizeModelName(in); got != want {
			t.Errorf("NormalizeModelName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPriceBookLookup(t *testing.T) {
	b := BuiltinBook()

	r, ok := b.Lookup("gpt-5-codex")
	if !ok || r.Input != 0.00125 {
		t.Fatalf("gpt-5-codex alias = %+v, %v", r, ok)
	}
	if _, ok := b.Lookup("gpt-4.1-2025-04-14"); !ok {
		t.Error("dated model name not resolved")
	}
	r, ok = b.Lookup("mystery-model")
	if ok || !r.IsZero() {
		t.Errorf("unknown model = %+v, %v; want zero default", r, ok)
	}
}

func TestResolverFallsBackToForcedRates(t *testing.T) {
	r := &Resolver{Book: BuiltinBook()}
	got := r.Rates("mystery-model")
	if got.Input != DefaultForcedRates.Input || got.Output != DefaultForcedRates.Output {
		t.Errorf("Rates(unknown) = %+v, want DefaultForcedRates", got)
	}

	var empty Resolver
	if got := empty.Rates("gpt-5"); got.Input != 0.005 {
		t.Errorf("resolver without book = %+v, want forced defaults", got)
	}
}

func TestResolverForcedModelWins(t *testing.T) {
	r := &Resolver{Book: BuiltinBook(), ForcedModel: "gpt-5-mini"}
	if got := r.Rates("o3"); got.Input != 0.00025 {
		t.Errorf("Rates with forced model = %+v, want gpt-5-mini rates", got)
	}
}

func TestCalculateCost(t *testing.T) {
	ev := model.TokenEvent{InputTokens: 10000, CachedInputTokens: 2000, OutputTokens: 500}

	plain := CalculateCost(model.RateTable{Input: 0.005, Output: 0.015}, ev, false)
	if !approx(plain, 0.0575) {
		t.Errorf("input-inclusive cost = %v, want 0.0575", plain)
	}

	cached := CalculateCost(model.RateTable{Input: 0.005, CachedInput: ptr(0.001), Output: 0.015}, ev, true)
	if !approx(cached, 0.0495) {
		t.Errorf("cached cost = %v, want 0.0495", cached)
	}

	noCachedRate := CalculateCost(model.RateTable{Input: 0.005, Output: 0.015}, ev, true)
	if !approx(noCachedRate, 0.0575) {
		t.Errorf("cached pricing without cached rate = %v, want 0.0575", noCachedRate)
	}

	onlyCached := model.TokenEvent{CachedInputTokens: 1000}
	if got := CalculateCost(model.RateTable{Input: 0.005, CachedInput: ptr(0.001)}, onlyCached, false); !approx(got, 0.001) {
		t.Errorf("cached-only event = %v, want 0.001", got)
	}

	overCached := model.TokenEvent{InputTokens: 100, CachedInputTokens: 500}
	if got := CalculateCost(model.RateTable{Input: 0.01, CachedInput: ptr(0.001)}, overCached, true); !approx(got, 0.0005) {
		t.Errorf("cached > input = %v, want 0.0005 (no negative input)", got)
	}
}

func TestParsePriceBook_Flat(t *testing.T) {
	b, err := ParsePriceBook([]byte(`{"input": 0.002, "output": 0.008}`))
	if err != nil {
		t.Fatal(err)
	}
	r, ok := b.Lookup("anything")
	if ok {
		t.Error("flat book should not report a model hit")
	}
	if r.Input != 0.002 || r.Output != 0.008 || r.CachedRate() != 0.002 || r.ReasoningRate() != 0.008 {
		t.Errorf("flat rates = %+v", r)
	}
}

func TestParsePriceBook_Book(t *testing.T) {
	data := `{
		"default": {"input": 0.001, "output": 0.002},
		"models": {"gpt-5": {"input": 0.00125, "cached_input": 0.000125, "output": 0.01}},
		"aliases": {"gpt-5-latest": "gpt-5"}
	}`
	b, err := ParsePriceBook([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	r, ok := b.Lookup("gpt-5-latest")
	if !ok || r.CachedRate() != 0.000125 {
		t.Errorf("alias lookup = %+v, %v", r, ok)
	}
	r, _ = b.Lookup("o3")
	if r.Input != 0.001 {
		t.Errorf("default = %+v", r)
	}
}

func TestParsePriceBook_Errors(t *testing.T) {
	if _, err := ParsePriceBook([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := ParsePriceBook([]byte(`{"foo": 1}`)); !errors.Is(err, ErrUnknownPriceFormat) {
		t.Errorf("err = %v, want ErrUnknownPriceFormat", err)
	}
}

func TestLoadPriceBook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	if err := os.WriteFile(path, []byte(`{"input": 0.01, "output": 0.02}`), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := LoadPriceBook(path)
	if err != nil {
		t.Fatal(err)
	}
	if b.Default.Input != 0.01 {
		t.Errorf("Default.Input = %v", b.Default.Input)
	}
	if _, err := LoadPriceBook(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyOverrides(t *testing.T) {
	b := BuiltinBook()
	b.ApplyOverrides(map[string]RateOverride{
		"gpt-5":   {Output: ptr(0.02)},
		"default": {Input: ptr(0.003)},
	})
	r, _ := b.Lookup("gpt-5")
	if r.Output != 0.02 || r.Input != 0.00125 {
		t.Errorf("gpt-5 after override = %+v", r)
	}
	if b.Default.Input != 0.003 {
		t.Errorf("default after override = %+v", b.Default)
	}
	if DefaultPricing["gpt-5"].Output != 0.01 {
		t.Error("override mutated DefaultPricing")
	}
}
