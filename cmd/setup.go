package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/config"
	"github.com/theirongolddev/cxburn/internal/source"
	"github.com/theirongolddev/cxburn/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	vals := tui.NewSetupValues(cfg)
	if err := tui.NewSetupForm(&vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled.")
			return nil
		}
		return err
	}

	updated := cfg
	if err := vals.Apply(&updated); err != nil {
		return err
	}
	if err := config.Save(updated); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	logPath := updated.General.LogPath
	if logPath == "" {
		logPath = source.DefaultLogPath()
	}
	if err := source.CheckLog(logPath); err != nil {
		fmt.Printf("  Warning: %v\n", err)
	}
	fmt.Println("  Run `cxburn` for the live view or `cxburn tui` for the dashboard.")
	return nil
}
