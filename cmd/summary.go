package cmd

import (
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/pipeline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Token and cost totals",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	events, rates, err := loadPriced(cmd.Context())
	if err != nil {
		return err
	}
	agg := pipeline.Summarize(events)
	if rates != nil {
		agg.AddCost(0)
	}
	return emit("SUMMARY", cli.SummaryReport(agg))
}
