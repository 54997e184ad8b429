package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/config"
	"github.com/theirongolddev/cxburn/internal/model"
	"github.com/theirongolddev/cxburn/internal/store"
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Show the active per-1k token prices",
	RunE:  runPrices,
}

var pricesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the price list now",
	RunE: func(cmd *cobra.Command, args []string) error {
		flagRefreshPrices = true
		flagNoAutoPrices = false
		cfg.Pricing.AutoFetch = true
		flagPrices = ""
		return runPrices(cmd, args)
	},
}

var pricesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the cached price list",
	RunE:  runPricesClear,
}

func init() {
	pricesCmd.AddCommand(pricesRefreshCmd)
	pricesCmd.AddCommand(pricesClearCmd)
	rootCmd.AddCommand(pricesCmd)
}

func rateCell(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func runPrices(cmd *cobra.Command, _ []string) error {
	book, origin, err := activeBook(cmd.Context())
	if err != nil {
		return err
	}
	if book == nil {
		fmt.Println("\n  Pricing is disabled (no price file, auto prices off and no forced model).")
		return nil
	}

	names := lo.Keys(book.Models)
	sort.Strings(names)

	r := cli.Report{
		Fields: []string{"model", "input", "cached_input", "output", "reasoning"},
		Table:  cli.Table{Headers: []string{"model", "input", "cached", "output", "reasoning"}},
	}
	add := func(name string, rt model.RateTable) {
		row := []string{name, rateCell(rt.Input), rateCell(rt.CachedRate()), rateCell(rt.Output), rateCell(rt.ReasoningRate())}
		r.Rows = append(r.Rows, row)
		r.Table.Rows = append(r.Table.Rows, row)
		r.Records = append(r.Records, map[string]any{
			"model": name, "input": rt.Input, "cached_input": rt.CachedRate(),
			"output": rt.Output, "reasoning": rt.ReasoningRate(),
		})
	}
	for _, name := range names {
		add(name, book.Models[name])
	}
	r.Table.Rows = append(r.Table.Rows, cli.Rule)
	add("(default)", book.Default)

	title := fmt.Sprintf("PRICES  USD per 1k tokens · source %s", origin)
	if flagForcedModel != "" {
		resolved := (&config.Resolver{Book: book, ForcedModel: flagForcedModel}).Rates("")
		title += " · forced " + flagForcedModel
		add("forced:"+flagForcedModel, resolved)
	}
	return emit(title, r)
}

func runPricesClear(_ *cobra.Command, _ []string) error {
	cache, err := store.Open(store.DefaultPath())
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	providers, err := cache.Providers()
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}
	if len(providers) == 0 {
		return errors.New("no cached price lists")
	}
	for p, at := range providers {
		if err := cache.DeletePriceList(p); err != nil {
			return fmt.Errorf("deleting %s: %w", p, err)
		}
		fmt.Printf("  Dropped %s prices (fetched %s ago)\n", p, cli.FormatDuration(int64(time.Since(at).Seconds())))
	}
	return nil
}
