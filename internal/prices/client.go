// Package prices fetches model price lists from Helicone and turns them
// into a config.PriceBook, caching raw responses in the store.
package prices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is Helicone's public cost endpoint.
	DefaultBaseURL = "https://www.helicone.ai/api/llm-costs"
	requestTimeout = 5 * time.Second
	maxBodySize    = 8 << 20 // 8 MB
	userAgent      = "cxburn/0.1"
)

var (
	// ErrNotFound indicates the provider is unknown to the price service.
	ErrNotFound = errors.New("prices: provider not found")
	// ErrRateLimited indicates the price service rate limit was hit.
	ErrRateLimited = errors.New("prices: rate limited")
)

// Client fetches raw price lists.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

// NewClient returns a client for the public Helicone endpoint.
func NewClient() *Client {
	return &Client{HTTP: &http.Client{}, BaseURL: DefaultBaseURL}
}

// URL returns the request URL for provider.
func (c *Client) URL(provider string) string {
	base := c.BaseURL
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}
	return base + "?provider=" + url.QueryEscape(provider)
}

// Fetch returns the raw JSON price list for provider.
func (c *Client) Fetch(ctx context.Context, provider string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(provider), nil)
	if err != nil {
		return nil, fmt.Errorf("prices: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prices: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("prices: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("prices: reading response: %w", err)
	}
	return body, nil
}
