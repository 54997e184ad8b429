package prices

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/cxburn/internal/store"
)

const heliconeBody = `{"metadata":{"total":2},"data":[
	{"provider":"OPENAI","model":"gpt-5","input_cost_per_1m":1.25,"output_cost_per_1m":10,"prompt_cache_read_per_1m":0.125},
	{"provider":"OPENAI","model":"gpt-4o","input_cost_per_1m":2.5,"output_cost_per_1m":10}
]}`

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestNormalize_DataEnvelope(t *testing.T) {
	book, err := Normalize([]byte(heliconeBody))
	if err != nil {
		t.Fatal(err)
	}
	r, ok := book.Lookup("gpt-5")
	if !ok {
		t.Fatal("gpt-5 missing")
	}
	if !approx(r.Input, 0.00125) || !approx(r.Output, 0.01) || !approx(r.CachedRate(), 0.000125) {
		t.Errorf("gpt-5 rates = %+v", r)
	}
	r, _ = book.Lookup("gpt-4o")
	if !approx(r.CachedRate(), r.Input) || !approx(r.ReasoningRate(), r.Output) {
		t.Errorf("fallback rates not applied: %+v", r)
	}
	if book.Aliases["gpt-5-latest"] != "gpt-5" {
		t.Errorf("missing -latest alias: %v", book.Aliases)
	}
}

func TestNormalize_ModelsMapAndFlat(t *testing.T) {
	book, err := Normalize([]byte(`{"input": 0.001, "output": 0.002, "models": {"m": {"input_per_1k": 0.003, "completion": 0.004}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if book.Default.Input != 0.001 || book.Default.Output != 0.002 {
		t.Errorf("default = %+v", book.Default)
	}
	r, _ := book.Lookup("m")
	if r.Input != 0.003 || r.Output != 0.004 {
		t.Errorf("m = %+v", r)
	}
}

func TestNormalize_BareList(t *testing.T) {
	book, err := Normalize([]byte(`[{"name": "x", "input": 0.5}, {"nope": 1}, 3]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(book.Models) != 1 || book.Models["x"].Input != 0.5 {
		t.Errorf("models = %+v", book.Models)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	if _, err := Normalize([]byte(`"string"`)); err == nil {
		t.Error("expected error for scalar JSON")
	}
	if _, err := Normalize([]byte(`{`)); err == nil {
		t.Error("expected error for broken JSON")
	}
}

func TestClientFetch(t *testing.T) {
	var gotUA, gotProvider string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotProvider = r.URL.Query().Get("provider")
		_, _ = w.Write([]byte(heliconeBody))
	}))
	defer srv.Close()

	c := &Client{HTTP: srv.Client(), BaseURL: srv.URL}
	body, err := c.Fetch(context.Background(), "openai")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != heliconeBody {
		t.Errorf("body mismatch")
	}
	if gotProvider != "openai" || gotUA != userAgent {
		t.Errorf("provider=%q ua=%q", gotProvider, gotUA)
	}
}

func TestClientFetch_Status(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c := &Client{HTTP: srv.Client(), BaseURL: srv.URL}
		_, err := c.Fetch(context.Background(), "openai")
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
		srv.Close()
	}
}

// countingFetcher serves a fixed body and counts calls.
type countingFetcher struct {
	body  []byte
	err   error
	calls atomic.Int32
}

func (f *countingFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls.Add(1)
	return f.body, f.err
}

func (f *countingFetcher) URL(provider string) string { return "test://" + provider }

func TestLoadOrFetch_UsesFreshCache(t *testing.T) {
	cache, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cache.Close() }()

	now := time.Date(2025, 9, 14, 12, 0, 0, 0, time.UTC)
	f := &countingFetcher{body: []byte(heliconeBody)}
	opts := Options{Provider: "openai", TTL: 24 * time.Hour, Now: func() time.Time { return now }}

	_, origin, err := LoadOrFetch(context.Background(), cache, f, opts)
	if err != nil || origin != OriginFetched {
		t.Fatalf("first load: origin=%q err=%v", origin, err)
	}
	_, origin, err = LoadOrFetch(context.Background(), cache, f, opts)
	if err != nil || origin != OriginCache {
		t.Fatalf("second load: origin=%q err=%v", origin, err)
	}
	if f.calls.Load() != 1 {
		t.Errorf("fetch calls = %d, want 1", f.calls.Load())
	}

	opts.Refresh = true
	if _, origin, _ = LoadOrFetch(context.Background(), cache, f, opts); origin != OriginFetched {
		t.Errorf("refresh origin = %q", origin)
	}

	now = now.Add(48 * time.Hour)
	opts.Refresh = false
	if _, origin, _ = LoadOrFetch(context.Background(), cache, f, opts); origin != OriginFetched {
		t.Errorf("expired cache origin = %q", origin)
	}
}

func TestLoadOrFetch_StaleOnFailure(t *testing.T) {
	cache, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cache.Close() }()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := cache.SavePriceList(store.PriceList{Provider: "openai", SourceURL: "x", Body: []byte(heliconeBody), FetchedAt: old}); err != nil {
		t.Fatal(err)
	}

	f := &countingFetcher{err: errors.New("offline")}
	book, origin, err := LoadOrFetch(context.Background(), cache, f, Options{TTL: time.Hour})
	if err != nil || origin != OriginStale || book == nil {
		t.Fatalf("origin=%q err=%v", origin, err)
	}

	if _, _, err := LoadOrFetch(context.Background(), nil, f, Options{TTL: time.Hour}); err == nil {
		t.Error("expected error without cache and without network")
	}
}
