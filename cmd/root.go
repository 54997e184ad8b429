// Package cmd implements the cxburn CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/config"
	"github.com/theirongolddev/cxburn/internal/model"
	"github.com/theirongolddev/cxburn/internal/pipeline"
	"github.com/theirongolddev/cxburn/internal/prices"
	"github.com/theirongolddev/cxburn/internal/session"
	"github.com/theirongolddev/cxburn/internal/source"
	"github.com/theirongolddev/cxburn/internal/store"
)

var (
	flagLog          string
	flagIncludeModel bool
	flagFormat       string
	flagBorder       string
	flagNoHeader     bool
	flagUTC          bool
	flagQuiet        bool
	flagVerbose      bool

	flagSinceHours float64
	flagSinceDays  int
	flagSinceDate  string
	flagLastMonth  bool

	flagPrices        string
	flagNoAutoPrices  bool
	flagRefreshPrices bool
	flagForcedModel   string
	flagCachedPricing bool
	flagUSDInput      float64
	flagUSDOutput     float64
	flagUSDReasoning  float64
	flagUSDCached     float64

	// flagRateOverride holds the --usd-per-1k-* flags that were set; nil
	// when none were.
	flagRateOverride *config.RateOverride
)

// cfg is the loaded config file, read once before any command runs.
var cfg = config.DefaultConfig()

// usageError marks errors caused by bad invocations; they exit 2.
type usageError struct{ error }

func usageErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

var rootCmd = &cobra.Command{
	Use:   "cxburn",
	Short: "Codex CLI token usage and cost",
	Long: "Read the Codex TUI log, find the current 5-hour usage window and report\n" +
		"tokens and cost. With no flags cxburn shows the live session view;\n" +
		"with flags and no subcommand it prints the daily report.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runRoot,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cxburn: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLog, "log", "", "Codex log file (default $CXBURN_LOG, config, then ~/.codex/log/codex-tui.log)")
	pf.BoolVar(&flagIncludeModel, "include-model", false, "Track and show the model of each event")
	pf.StringVarP(&flagFormat, "format", "f", "table", "Output format: table, tsv, csv, ndjson, json")
	pf.StringVar(&flagBorder, "border", "", "Table border: unicode or ascii")
	pf.BoolVar(&flagNoHeader, "no-header", false, "Omit the header row")
	pf.BoolVar(&flagUTC, "utc", false, "Show table times in UTC instead of local time")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log diagnostics to stderr")

	pf.Float64Var(&flagSinceHours, "since-hours", 0, "Only events from the last N hours")
	pf.IntVar(&flagSinceDays, "since-days", 0, "Only events from the last N days")
	pf.StringVar(&flagSinceDate, "since-date", "", "Only events on or after YYYY-MM-DD (UTC)")
	pf.BoolVar(&flagLastMonth, "last-month", false, "Only events from the previous calendar month (UTC)")

	pf.StringVar(&flagPrices, "prices", "", "JSON price file (per-1k USD)")
	pf.BoolVar(&flagNoAutoPrices, "no-auto-prices", false, "Do not fetch prices online")
	pf.BoolVar(&flagRefreshPrices, "refresh-prices", false, "Fetch prices even if the cached copy is fresh")
	pf.StringVar(&flagForcedModel, "forced-model", "", "Price every event as this model (empty: use each event's model)")
	pf.BoolVar(&flagCachedPricing, "cached-pricing", false, "Bill cached input at the cached-input rate")
	pf.Float64Var(&flagUSDInput, "usd-per-1k-input", 0, "Override the input rate")
	pf.Float64Var(&flagUSDOutput, "usd-per-1k-output", 0, "Override the output rate")
	pf.Float64Var(&flagUSDReasoning, "usd-per-1k-reasoning", 0, "Override the reasoning rate")
	pf.Float64Var(&flagUSDCached, "usd-per-1k-cached-input", 0, "Override the cached-input rate")

	rootCmd.MarkFlagsMutuallyExclusive("since-hours", "since-days", "since-date", "last-month")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
}

// setup loads the config file and applies it under any flags that were
// set explicitly.
func setup(cmd *cobra.Command, _ []string) error {
	log.SetFlags(log.LstdFlags)
	if flagVerbose {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	loaded, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "  Warning: %v (using defaults)\n", err)
		loaded = config.DefaultConfig()
	}
	cfg = loaded

	flags := cmd.Flags()
	if !flags.Changed("log") {
		flagLog = config.LogPath(cfg)
		if flagLog == "" {
			flagLog = source.DefaultLogPath()
		}
	}
	if !flags.Changed("include-model") {
		flagIncludeModel = cfg.General.IncludeModel
	}
	if !flags.Changed("border") {
		flagBorder = cfg.General.Border
	}
	if !flags.Changed("prices") {
		flagPrices = cfg.Pricing.PricesFile
	}
	if !flags.Changed("forced-model") {
		flagForcedModel = cfg.Pricing.ForcedModel
	}
	if !flags.Changed("cached-pricing") {
		flagCachedPricing = cfg.Pricing.CachedPricing
	}

	flagRateOverride = cliOverride(flags)

	if _, err := cli.ParseFormat(flagFormat); err != nil {
		return usageError{err}
	}
	if flagBorder != cli.BorderUnicode && flagBorder != cli.BorderASCII {
		return usageErrorf("unknown border %q (want unicode or ascii)", flagBorder)
	}
	return nil
}

// runRoot shows the live view when invoked bare, the daily report when
// any flag was given.
func runRoot(cmd *cobra.Command, args []string) error {
	if cmd.Flags().NFlag() == 0 {
		return runLive(cmd, args)
	}
	return runDaily(cmd, args)
}

// span is a [Since, Until) filter over event instants. Zero bounds are
// open.
type span struct {
	Since time.Time
	Until time.Time
}

func (s span) set() bool { return !s.Since.IsZero() || !s.Until.IsZero() }

// timeSpan turns the --since-* flags into a span.
func timeSpan(now time.Time) (span, error) {
	now = now.UTC()
	switch {
	case flagSinceHours > 0:
		return span{Since: now.Add(-time.Duration(flagSinceHours * float64(time.Hour)))}, nil
	case flagSinceDays > 0:
		return span{Since: now.AddDate(0, 0, -flagSinceDays)}, nil
	case flagSinceDate != "":
		t, err := time.Parse("2006-01-02", flagSinceDate)
		if err != nil {
			return span{}, usageErrorf("invalid --since-date %q: want YYYY-MM-DD", flagSinceDate)
		}
		return span{Since: t}, nil
	case flagLastMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return span{Since: first.AddDate(0, -1, 0), Until: first}, nil
	}
	if flagSinceHours < 0 || flagSinceDays < 0 {
		return span{}, usageErrorf("--since-hours and --since-days must be positive")
	}
	return span{}, nil
}

// filterSpan keeps timed events inside s; untimed events only survive an
// open span.
func filterSpan(events []model.PricedEvent, s span) []model.PricedEvent {
	if !s.set() {
		return events
	}
	return lo.Filter(events, func(ev model.PricedEvent, _ int) bool {
		if !ev.Timestamp.Valid {
			return false
		}
		t := ev.Timestamp.Time
		if !s.Since.IsZero() && t.Before(s.Since) {
			return false
		}
		return s.Until.IsZero() || t.Before(s.Until)
	})
}

// loadData is the shared data loading path used by all report commands.
func loadData() (*pipeline.LoadResult, error) {
	if err := source.CheckLog(flagLog); err != nil {
		return nil, err
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Reading %s...\n", flagLog)
	}

	progressFn := func(current, total int64) {
		if flagQuiet || total == 0 {
			return
		}
		fmt.Fprintf(os.Stderr, "\r  Parsing [%d%%]", current*100/total)
	}

	result, err := pipeline.Load(flagLog, flagIncludeModel, progressFn)
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "\r  Loaded %s events from %s lines    \n",
			cli.FormatNumber(int64(len(result.Events))),
			cli.FormatNumber(int64(result.Lines)),
		)
	}
	log.Printf("cxburn: %d token events without a timestamp", result.Untimed)
	return result, nil
}

// priceRates builds the rate function from the active price book. A nil
// func disables pricing.
func priceRates(ctx context.Context) (session.RateFunc, error) {
	book, _, err := activeBook(ctx)
	if err != nil || book == nil {
		return nil, err
	}
	r := &config.Resolver{Book: book, ForcedModel: flagForcedModel}
	return r.Rates, nil
}

// activeBook resolves the price book from --prices, the fetched price
// list or the built-in table, with overrides applied, and says where it
// came from. It returns nil when pricing is disabled.
func activeBook(ctx context.Context) (*config.PriceBook, string, error) {
	var (
		book   *config.PriceBook
		origin string
	)
	switch {
	case flagPrices != "":
		b, err := config.LoadPriceBook(flagPrices)
		if err != nil {
			return nil, "", err
		}
		book, origin = b, flagPrices
	case cfg.Pricing.AutoFetch && !flagNoAutoPrices:
		b, o := fetchBook(ctx)
		book, origin = b, string(o)
	}

	overrides := flagRateOverride
	if book == nil {
		if flagForcedModel == "" && overrides == nil {
			return nil, "", nil
		}
		book, origin = config.BuiltinBook(), "builtin"
	}

	book.ApplyOverrides(cfg.Pricing.Overrides)
	if overrides != nil {
		book.Override("", *overrides)
		if flagForcedModel != "" {
			book.Override(flagForcedModel, *overrides)
		}
	}
	return book, origin, nil
}

// fetchBook returns the cached or freshly fetched price list, or nil.
// Failures are warnings.
func fetchBook(ctx context.Context) (*config.PriceBook, prices.Origin) {
	cache, err := store.Open(store.DefaultPath())
	if err != nil {
		log.Printf("cxburn prices: cache unavailable: %v", err)
		cache = nil
	} else {
		defer func() { _ = cache.Close() }()
	}

	ttl := time.Duration(cfg.Pricing.CacheTTLHours) * time.Hour
	book, origin, err := prices.LoadOrFetch(ctx, cache, prices.NewClient(), prices.Options{
		Provider: cfg.Pricing.Provider,
		TTL:      ttl,
		Refresh:  flagRefreshPrices,
	})
	if err != nil {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Warning: price fetch failed: %v\n", err)
		}
		return nil, ""
	}
	if origin == prices.OriginStale && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Warning: using stale cached prices\n")
	}
	return book, origin
}

// cliOverride collects the --usd-per-1k-* flags that were set in flags.
func cliOverride(flags *pflag.FlagSet) *config.RateOverride {
	var (
		o       config.RateOverride
		changed bool
	)
	set := func(name string, v float64, dst **float64) {
		if flags.Changed(name) {
			*dst = &v
			changed = true
		}
	}
	set("usd-per-1k-input", flagUSDInput, &o.Input)
	set("usd-per-1k-output", flagUSDOutput, &o.Output)
	set("usd-per-1k-reasoning", flagUSDReasoning, &o.Reasoning)
	set("usd-per-1k-cached-input", flagUSDCached, &o.CachedInput)
	if !changed {
		return nil
	}
	return &o
}

// loadPriced loads the log, prices every event and applies the span. The
// rate func is nil when pricing is disabled.
func loadPriced(ctx context.Context) ([]model.PricedEvent, session.RateFunc, error) {
	sp, err := timeSpan(time.Now())
	if err != nil {
		return nil, nil, err
	}
	result, err := loadData()
	if err != nil {
		return nil, nil, err
	}
	rates, err := priceRates(ctx)
	if err != nil {
		return nil, nil, err
	}
	priced := pipeline.Price(result.Events, rates, flagCachedPricing)
	return filterSpan(priced, sp), rates, nil
}

func reportOptions() cli.Options {
	loc := time.Local
	if flagUTC {
		loc = time.UTC
	}
	return cli.Options{
		Border:       flagBorder,
		NoHeader:     flagNoHeader,
		IncludeModel: flagIncludeModel,
		Loc:          loc,
	}
}

// emit writes r to stdout in the selected format. Table output gets a
// title and surrounding blank lines.
func emit(title string, r cli.Report) error {
	f, err := cli.ParseFormat(flagFormat)
	if err != nil {
		return usageError{err}
	}
	if f == cli.FormatTable && title != "" {
		fmt.Println()
		fmt.Println(cli.RenderTitle(title))
		fmt.Println()
	}
	return r.Write(os.Stdout, f, reportOptions())
}

func isTable() bool {
	return flagFormat == "" || flagFormat == string(cli.FormatTable)
}
