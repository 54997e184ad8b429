package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/pipeline"
)

var (
	flagEventsLast    int
	flagEventsSummary bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Per-event token usage",
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().IntVarP(&flagEventsLast, "last", "n", 0, "Only the newest N events (0: all)")
	eventsCmd.Flags().BoolVar(&flagEventsSummary, "summary", false, "Add a totals row (table) or a summary line on stderr")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	if flagEventsLast < 0 {
		return usageErrorf("--last must not be negative")
	}
	events, rates, err := loadPriced(cmd.Context())
	if err != nil {
		return err
	}
	if flagEventsLast > 0 {
		events = pipeline.LastN(events, flagEventsLast)
	}

	agg := pipeline.Summarize(events)
	if rates != nil {
		agg.AddCost(0)
	}

	r := cli.EventsReport(events, nil, reportOptions())
	if flagEventsSummary && isTable() {
		r = cli.EventsReport(events, &agg, reportOptions())
	}
	if err := emit(fmt.Sprintf("EVENTS  %d", len(events)), r); err != nil {
		return err
	}
	if flagEventsSummary && !isTable() {
		fmt.Fprintln(os.Stderr, cli.SummaryLine(agg))
	}
	return nil
}
