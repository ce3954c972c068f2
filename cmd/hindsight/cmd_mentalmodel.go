package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hindsight-run/hindsight/internal/storage"
)

var mentalModelCmd = &cobra.Command{
	Use:   "mental-model",
	Short: "Manage standing mental models",
}

var (
	mentalModelAddTags            []string
	mentalModelAddRefreshOnUpdate bool
)

var mentalModelAddCmd = &cobra.Command{
	Use:   "add <name> <source-query>",
	Short: "Register a standing mental model",
	Long: `Register a named mental model whose content is synthesized from
source_query. It starts empty and is populated the first time it is
refreshed (§4.5.3) — run "hindsight consolidate" to trigger a pass.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runMentalModelAdd(args[0], args[1])
	},
}

var mentalModelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mental models",
	Run: func(cmd *cobra.Command, args []string) {
		runMentalModelList()
	},
}

func init() {
	rootCmd.AddCommand(mentalModelCmd)
	mentalModelCmd.AddCommand(mentalModelAddCmd, mentalModelListCmd)

	mentalModelAddCmd.Flags().StringSliceVarP(&mentalModelAddTags, "tags", "t", nil, "tags scoping when this model refreshes")
	mentalModelAddCmd.Flags().BoolVar(&mentalModelAddRefreshOnUpdate, "refresh-after-consolidation", true, "schedule a refresh whenever consolidation touches a matching tag")
}

func runMentalModelAdd(name, sourceQuery string) {
	e, err := openEngine()
	if err != nil {
		fatal(err)
	}
	defer e.Store.Close()

	m := &storage.MentalModel{
		BankID:      bankID,
		Name:        name,
		SourceQuery: sourceQuery,
		Tags:        mentalModelAddTags,
		Trigger:     storage.MentalModelTrigger{RefreshAfterConsolidation: mentalModelAddRefreshOnUpdate},
	}
	if err := e.Store.CreateMentalModel(m); err != nil {
		fatal(fmt.Errorf("create mental model: %w", err))
	}
	fmt.Printf("created mental model %s\n", m.ID)
}

func runMentalModelList() {
	e, err := openEngine()
	if err != nil {
		fatal(err)
	}
	defer e.Store.Close()

	models, err := e.Store.ListMentalModels(bankID)
	if err != nil {
		fatal(fmt.Errorf("list mental models: %w", err))
	}
	for _, m := range models {
		content := m.Content
		if content == "" {
			content = "(not yet refreshed)"
		}
		fmt.Printf("%s %s: %s\n", m.ID, m.Name, content)
	}
}
