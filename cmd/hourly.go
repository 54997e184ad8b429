package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/pipeline"
)

var hourlyCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Token usage by hour of day",
	RunE:  runHourly,
}

func init() {
	rootCmd.AddCommand(hourlyCmd)
}

func runHourly(cmd *cobra.Command, _ []string) error {
	events, _, err := loadPriced(cmd.Context())
	if err != nil {
		return err
	}

	loc := time.Local
	if flagUTC {
		loc = time.UTC
	}
	hours := pipeline.AggregateHourly(events, loc)
	return emit("ACTIVITY BY HOUR  "+loc.String(), cli.HourlyReport(hours))
}
