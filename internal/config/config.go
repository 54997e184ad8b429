// Package config holds cxburn settings and token pricing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// Config holds all cxburn configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Session    SessionConfig    `toml:"session"`
	Pricing    PricingConfig    `toml:"pricing"`
	Appearance AppearanceConfig `toml:"appearance"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	LogPath      string `toml:"log_path,omitempty"`
	IncludeModel bool   `toml:"include_model"`
	Border       string `toml:"border"`
	DefaultDays  int    `toml:"default_days"`
}

// SessionConfig controls window detection and the live views.
type SessionConfig struct {
	GapHours         float64 `toml:"gap_hours"`
	ReportGapMinutes int     `toml:"report_gap_minutes"`
	RefreshSeconds   int     `toml:"refresh_seconds"`
	TailLines        int     `toml:"tail_lines"`
	MaxRows          int     `toml:"max_rows"`
}

// PricingConfig controls where rates come from.
type PricingConfig struct {
	PricesFile    string                  `toml:"prices_file,omitempty"`
	AutoFetch     bool                    `toml:"auto_fetch"`
	Provider      string                  `toml:"provider"`
	CacheTTLHours int                     `toml:"cache_ttl_hours"`
	ForcedModel   string                  `toml:"forced_model"`
	CachedPricing bool                    `toml:"cached_pricing"`
	Overrides     map[string]RateOverride `toml:"overrides,omitempty"`
}

// RateOverride patches the per-1k rates of one model. Unset fields keep
// the resolved value.
type RateOverride struct {
	Input       *float64 `toml:"input,omitempty"`
	CachedInput *float64 `toml:"cached_input,omitempty"`
	Output      *float64 `toml:"output,omitempty"`
	Reasoning   *float64 `toml:"reasoning,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr            string `toml:"addr"`
	IntervalSeconds int    `toml:"interval_seconds"`
	EventsBuffer    int    `toml:"events_buffer"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Border:      "unicode",
			DefaultDays: 30,
		},
		Session: SessionConfig{
			GapHours:         5,
			ReportGapMinutes: 10,
			RefreshSeconds:   2,
			TailLines:        50000,
			MaxRows:          200,
		},
		Pricing: PricingConfig{
			AutoFetch:     true,
			Provider:      "openai",
			CacheTTLHours: 24,
			ForcedModel:   "gpt-5",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8787",
			IntervalSeconds: 15,
			EventsBuffer:    200,
		},
	}
}

// Gap returns the usage window length.
func (c Config) Gap() time.Duration {
	if c.Session.GapHours <= 0 {
		return 5 * time.Hour
	}
	return time.Duration(c.Session.GapHours * float64(time.Hour))
}

// Refresh returns the live view refresh interval.
func (c Config) Refresh() time.Duration {
	if c.Session.RefreshSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Session.RefreshSeconds) * time.Second
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, "cxburn")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config at path over the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // config path is ours
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to the default location.
func Save(cfg Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes the config to path, creating its directory.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // config path is ours
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// LogPath returns the Codex log path from env var or config, in that order.
// An empty result means the caller should use the default location.
func LogPath(cfg Config) string {
	if p := os.Getenv("CXBURN_LOG"); p != "" {
		return p
	}
	return cfg.General.LogPath
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}
