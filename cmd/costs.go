package cmd

import (
	"errors"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cxburn/internal/cli"
	"github.com/theirongolddev/cxburn/internal/model"
	"github.com/theirongolddev/cxburn/internal/pipeline"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Cost breakdown by token kind and model",
	RunE:  runCosts,
}

func init() {
	rootCmd.AddCommand(costsCmd)
}

func runCosts(cmd *cobra.Command, _ []string) error {
	flagIncludeModel = true
	events, rates, err := loadPriced(cmd.Context())
	if err != nil {
		return err
	}
	if rates == nil {
		return errors.New("pricing is disabled: pass --prices, --forced-model or enable auto prices")
	}

	tokens := lo.Map(events, func(ev model.PricedEvent, _ int) model.TokenEvent { return ev.TokenEvent })
	total, byModel := pipeline.AggregateCostBreakdown(tokens, rates, flagCachedPricing)

	records := lo.Map(byModel, func(m pipeline.ModelCostBreakdown, _ int) cli.CostRecord {
		return cli.CostRecord{
			Model:       m.Model,
			Input:       m.Input,
			CachedInput: m.CachedInput,
			Output:      m.Output,
			Reasoning:   m.Reasoning,
			Total:       m.Total(),
		}
	})
	return emit("COSTS", cli.CostsReport(total, records))
}
