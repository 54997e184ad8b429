package prices

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/theirongolddev/cxburn/internal/config"
	"github.com/theirongolddev/cxburn/internal/store"
)

// Origin says where a loaded book came from.
type Origin string

// Possible origins of a loaded book.
const (
	OriginCache   Origin = "cache"
	OriginFetched Origin = "fetched"
	OriginStale   Origin = "stale-cache"
)

// Fetcher is the part of Client that LoadOrFetch needs.
type Fetcher interface {
	Fetch(ctx context.Context, provider string) ([]byte, error)
	URL(provider string) string
}

// Options controls LoadOrFetch.
type Options struct {
	Provider string
	TTL      time.Duration
	Refresh  bool // ignore a fresh cache entry
	Now      func() time.Time
}

// LoadOrFetch returns the provider's price book, preferring a cached copy
// younger than TTL. A failed fetch falls back to any cached copy before
// giving up. cache may be nil.
func LoadOrFetch(ctx context.Context, cache *store.Cache, f Fetcher, opts Options) (*config.PriceBook, Origin, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	provider := opts.Provider
	if provider == "" {
		provider = "openai"
	}

	var (
		cached    store.PriceList
		haveCache bool
	)
	if cache != nil {
		pl, ok, err := cache.GetPriceList(provider)
		if err != nil {
			log.Printf("cxburn prices: %v", err)
		}
		cached, haveCache = pl, ok
	}

	if haveCache && !opts.Refresh && cached.Age(now()) <= opts.TTL {
		if book, err := Normalize(cached.Body); err == nil {
			return book, OriginCache, nil
		}
	}

	body, fetchErr := f.Fetch(ctx, provider)
	if fetchErr == nil {
		book, err := Normalize(body)
		if err != nil {
			return nil, "", err
		}
		if cache != nil {
			pl := store.PriceList{Provider: provider, SourceURL: f.URL(provider), Body: body, FetchedAt: now()}
			if err := cache.SavePriceList(pl); err != nil {
				log.Printf("cxburn prices: %v", err)
			}
		}
		return book, OriginFetched, nil
	}

	if haveCache {
		if book, err := Normalize(cached.Body); err == nil {
			return book, OriginStale, nil
		}
	}
	return nil, "", fmt.Errorf("fetching %s prices: %w", provider, fetchErr)
}
