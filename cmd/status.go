package cmd

import (
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/live"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Current usage window",
	Long: "Read the whole log once, resolve the current usage window the way the\n" +
		"live views do and show its usage.",
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	rates, err := priceRates(cmd.Context())
	if err != nil {
		return err
	}
	opts := liveOptions(rates)
	opts.Mode = live.ModeSession

	f, err := statusFrame(opts)
	if err != nil {
		return err
	}
	return emit("CURRENT WINDOW", cli.StatusReport(f, reportOptions()))
}

// statusFrame is the first frame a live driver would show for the log:
// the whole file read, the same latch and cold-start rules, and an empty
// aggregate when the window is synthetic.
func statusFrame(opts live.Options) (live.Frame, error) {
	d, err := live.Open(opts)
	if err != nil {
		return live.Frame{}, err
	}
	defer func() { _ = d.Close() }()

	f := d.Step()
	if f.ReadErr != nil {
		return f, f.ReadErr
	}
	return f, nil
}
