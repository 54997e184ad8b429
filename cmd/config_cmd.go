package cmd

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func rateOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Log file:        %s\n", flagLog)
	fmt.Printf("    Include model:   %v\n", flagIncludeModel)
	fmt.Printf("    Border:          %s\n", flagBorder)
	fmt.Printf("    Default days:    %d\n", cfg.General.DefaultDays)
	fmt.Println()

	fmt.Println("  [Session]")
	fmt.Printf("    Window:          %s\n", cfg.Gap())
	fmt.Printf("    Report gap:      %dm\n", cfg.Session.ReportGapMinutes)
	fmt.Printf("    Refresh:         %s\n", cfg.Refresh())
	fmt.Printf("    Tail lines:      %d\n", cfg.Session.TailLines)
	fmt.Printf("    Max rows:        %d\n", cfg.Session.MaxRows)
	fmt.Println()

	fmt.Println("  [Pricing]")
	if flagPrices != "" {
		fmt.Printf("    Prices file:     %s\n", flagPrices)
	}
	fmt.Printf("    Auto fetch:      %v (%s, %dh cache)\n", cfg.Pricing.AutoFetch, cfg.Pricing.Provider, cfg.Pricing.CacheTTLHours)
	forced := flagForcedModel
	if forced == "" {
		forced = "(per event)"
	}
	fmt.Printf("    Forced model:    %s\n", forced)
	fmt.Printf("    Cached pricing:  %v\n", flagCachedPricing)
	names := lo.Keys(cfg.Pricing.Overrides)
	sort.Strings(names)
	for _, name := range names {
		o := cfg.Pricing.Overrides[name]
		fmt.Printf("    Override %-14s in=%s cached=%s out=%s reasoning=%s\n", name,
			rateOrDash(o.Input), rateOrDash(o.CachedInput), rateOrDash(o.Output), rateOrDash(o.Reasoning))
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %ds\n", cfg.Daemon.IntervalSeconds)
	fmt.Println()

	fmt.Println("  Run `cxburn setup` to reconfigure.")
	return nil
}
