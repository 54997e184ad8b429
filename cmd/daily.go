package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/pipeline"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily usage table (UTC days)",
	RunE:  runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(cmd *cobra.Command, _ []string) error {
	now := time.Now().UTC()
	sp, err := timeSpan(now)
	if err != nil {
		return err
	}
	if !sp.set() {
		days := max(cfg.General.DefaultDays, 1)
		flagSinceDays = days
		sp.Since = now.AddDate(0, 0, -days)
	}

	events, _, err := loadPriced(cmd.Context())
	if err != nil {
		return err
	}

	end := now
	if !sp.Until.IsZero() {
		end = sp.Until.AddDate(0, 0, -1)
	}
	rows := pipeline.AggregateDaily(events)
	rows = pipeline.FillMissingDays(rows, sp.Since, end)
	rows = pipeline.TrimLeadingZeroDays(rows)
	if len(rows) == 0 {
		fmt.Println("\n  No data for the selected period.")
		return nil
	}

	title := fmt.Sprintf("DAILY USAGE  %s .. %s", sp.Since.Format("2006-01-02"), end.Format("2006-01-02"))
	return emit(title, cli.DailyReport(rows))
}
