package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run one consolidation pass over unconsolidated memories",
	Long: `Consolidate reads the oldest unconsolidated experience/world
memories for the bank, up to the configured consolidation batch size,
asks the LLM to create, update, or delete observations from them, and
schedules any mental-model refreshes the run triggers. Memories beyond
that batch size are left for a later run.

Examples:
  hindsight consolidate --bank alice
  hindsight consolidate --bank alice --refresh-models`,
	Run: func(cmd *cobra.Command, args []string) {
		runConsolidate()
	},
}

var consolidateRefreshModels bool

func init() {
	rootCmd.AddCommand(consolidateCmd)
	consolidateCmd.Flags().BoolVar(&consolidateRefreshModels, "refresh-models", true, "immediately run any mental-model refreshes the pass schedules")
}

func runConsolidate() {
	e, err := openEngine()
	if err != nil {
		fatal(err)
	}
	defer e.Store.Close()

	ctx := context.Background()
	summary, err := e.Consolidate.Run(ctx, bankID)
	if err != nil {
		fatal(fmt.Errorf("consolidate: %w", err))
	}

	fmt.Printf("processed %d memor%s, skipped %d batch(es), tags=%v untagged=%v\n",
		summary.MemoriesProcessed, plural(summary.MemoriesProcessed, "y", "ies"),
		summary.BatchesSkipped, summary.ProcessedTags, summary.AnyUntagged)

	if !consolidateRefreshModels {
		return
	}
	refreshed, err := e.Reflect.RunPendingRefreshes(ctx)
	if err != nil {
		fatal(fmt.Errorf("refresh mental models: %w", err))
	}
	if refreshed > 0 {
		fmt.Printf("refreshed %d mental model(s)\n", refreshed)
	}
}
