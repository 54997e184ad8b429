package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/session"
)

var (
	flagGapMinutes    int
	flagSessionsLimit int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Sessions split by inactivity",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(&flagGapMinutes, "gap-minutes", 0, "Inactivity that ends a session (default from config, 10)")
	sessionsCmd.Flags().IntVarP(&flagSessionsLimit, "limit", "l", 0, "Only the newest N sessions (0: all)")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, _ []string) error {
	gapMin := flagGapMinutes
	if !cmd.Flags().Changed("gap-minutes") {
		gapMin = cfg.Session.ReportGapMinutes
	}
	if gapMin <= 0 {
		return usageErrorf("--gap-minutes must be positive")
	}

	events, _, err := loadPriced(cmd.Context())
	if err != nil {
		return err
	}

	sessions := session.BuildSessions(events, time.Duration(gapMin)*time.Minute)
	if len(sessions) == 0 {
		fmt.Println("\n  No sessions in the selected time range.")
		return nil
	}
	if flagSessionsLimit > 0 && len(sessions) > flagSessionsLimit {
		sessions = sessions[len(sessions)-flagSessionsLimit:]
	}

	return emit(fmt.Sprintf("SESSIONS  %d (gap > %dm)", len(sessions), gapMin), cli.SessionsReport(sessions, reportOptions()))
}
