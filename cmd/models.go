package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/pipeline"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Usage by model",
	Long:  "Usage by model. Models come from SessionConfigured lines, so --include-model is implied.",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	flagIncludeModel = true
	events, _, err := loadPriced(cmd.Context())
	if err != nil {
		return err
	}

	models := pipeline.AggregateModels(events)
	if len(models) == 0 {
		fmt.Println("\n  No data for the selected period.")
		return nil
	}
	return emit("MODELS", cli.ModelsReport(models))
}
