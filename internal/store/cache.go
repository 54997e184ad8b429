// Package store provides a SQLite-backed cache for fetched price lists.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache provides SQLite-backed price list caching.
type Cache struct {
	db *sql.DB
}

// PriceList is one cached provider response.
type PriceList struct {
	Provider  string
	SourceURL string
	Body      []byte
	FetchedAt time.Time
}

// Age returns how old the list is at now.
func (p PriceList) Age(now time.Time) time.Duration {
	return now.Sub(p.FetchedAt)
}

// DefaultPath returns the XDG cache location of the database.
func DefaultPath() string {
	return filepath.Join(xdg.CacheHome, "cxburn", "cache.db")
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GetPriceList returns the cached list for provider. ok is false when
// nothing has been cached yet.
func (c *Cache) GetPriceList(provider string) (PriceList, bool, error) {
	var (
		pl        PriceList
		fetchedAt string
	)
	err := c.db.QueryRow(
		"SELECT provider, source_url, body, fetched_at FROM price_lists WHERE provider = ?",
		provider,
	).Scan(&pl.Provider, &pl.SourceURL, &pl.Body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PriceList{}, false, nil
	}
	if err != nil {
		return PriceList{}, false, fmt.Errorf("reading price list: %w", err)
	}
	pl.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return PriceList{}, false, fmt.Errorf("parsing fetched_at: %w", err)
	}
	return pl, true, nil
}

// SavePriceList stores or replaces the list for its provider.
func (c *Cache) SavePriceList(pl PriceList) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO price_lists (provider, source_url, body, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			source_url = excluded.source_url,
			body = excluded.body,
			fetched_at = excluded.fetched_at`,
		pl.Provider, pl.SourceURL, pl.Body, pl.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving price list: %w", err)
	}
	return tx.Commit()
}

// DeletePriceList drops the cached list for provider.
func (c *Cache) DeletePriceList(provider string) error {
	_, err := c.db.Exec("DELETE FROM price_lists WHERE provider = ?", provider)
	return err
}

// Providers lists cached providers with their fetch times.
func (c *Cache) Providers() (map[string]time.Time, error) {
	rows, err := c.db.Query("SELECT provider, fetched_at FROM price_lists")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]time.Time)
	for rows.Next() {
		var provider, fetchedAt string
		if err := rows.Scan(&provider, &fetchedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, fetchedAt)
		if err != nil {
			continue
		}
		result[provider] = t
	}
	return result, rows.Err()
}
