package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/live"
	"github.com/theirongolddev/cxburn/internal/session"
)

var (
	flagLiveEvents   bool
	flagLiveBar      string
	flagLiveBarMax   float64
	flagLiveBarWidth int
	flagLiveInterval time.Duration
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Follow the log and show the current session window",
	Long: "Follow the log and redraw the current 5-hour window every refresh.\n" +
		"With --events, list the events of the last --since-hours instead.",
	RunE: runLive,
}

func init() {
	liveCmd.Flags().BoolVar(&flagLiveEvents, "events", false, "Show recent events instead of the session row")
	liveCmd.Flags().StringVar(&flagLiveBar, "bar", cli.BarTokens, "Bar metric: tokens or cost")
	liveCmd.Flags().Float64Var(&flagLiveBarMax, "bar-max", 0, "Full-scale value of the bar (0: the current value)")
	liveCmd.Flags().IntVar(&flagLiveBarWidth, "bar-width", 20, "Bar width in cells")
	liveCmd.Flags().DurationVar(&flagLiveInterval, "interval", 0, "Refresh interval (default from config, 2s)")
	rootCmd.AddCommand(liveCmd)
}

// liveOptions builds driver options from flags and config.
func liveOptions(rates session.RateFunc) live.Options {
	interval := flagLiveInterval
	if interval <= 0 {
		interval = cfg.Refresh()
	}
	var lookback time.Duration
	if flagSinceHours > 0 {
		lookback = time.Duration(flagSinceHours * float64(time.Hour))
	}
	return live.Options{
		Path:          flagLog,
		IncludeModel:  flagIncludeModel,
		Gap:           cfg.Gap(),
		Rates:         rates,
		CachedPricing: flagCachedPricing,
		Lookback:      lookback,
		MaxRows:       cfg.Session.MaxRows,
		Tail:          cfg.Session.TailLines,
		Interval:      interval,
	}
}

func runLive(cmd *cobra.Command, _ []string) error {
	if flagLiveBar != cli.BarTokens && flagLiveBar != cli.BarCost {
		return usageErrorf("unknown --bar %q (want tokens or cost)", flagLiveBar)
	}
	if flagLiveBarMax < 0 {
		return usageErrorf("--bar-max must not be negative")
	}

	ctx := cmd.Context()
	rates, err := priceRates(ctx)
	if err != nil {
		return err
	}

	opts := liveOptions(rates)
	if flagLiveEvents {
		opts.Mode = live.ModeEvents
	}
	driver, err := live.Open(opts)
	if err != nil {
		return err
	}

	screen := cli.NewScreen(os.Stdout)
	frameOpts := cli.FrameOptions{
		Options:  reportOptions(),
		Bar:      flagLiveBar,
		BarMax:   flagLiveBarMax,
		BarWidth: flagLiveBarWidth,
	}
	err = driver.Run(ctx, func(f live.Frame) {
		screen.Draw(cli.RenderFrame(f, frameOpts))
	})
	fmt.Println()
	return err
}
