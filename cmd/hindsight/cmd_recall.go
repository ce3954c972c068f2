package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hindsight-run/hindsight/internal/recall"
	"github.com/hindsight-run/hindsight/internal/tagmatch"
)

var (
	recallTags      []string
	recallTagsMatch string
	recallBudget    string
	recallMaxTokens int
)

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Run hybrid retrieval over a bank",
	Long: `Recall ranks memories against a query using the hybrid retrieval
pipeline (lexical, semantic, and recency candidate pools, cross-encoder
reranking, and diversity filtering).

Examples:
  hindsight recall "what does the user prefer?" --bank alice
  hindsight recall "meetings" --bank alice --tags work --tags-match all`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRecall(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(recallCmd)
	recallCmd.Flags().StringSliceVarP(&recallTags, "tags", "t", nil, "scope results to these tags")
	recallCmd.Flags().StringVar(&recallTagsMatch, "tags-match", "any", "tag match mode: any, all, any_strict, all_strict")
	recallCmd.Flags().StringVar(&recallBudget, "budget", "mid", "candidate budget: low, mid, high")
	recallCmd.Flags().IntVar(&recallMaxTokens, "max-tokens", 2000, "token budget for returned results")
}

func runRecall(text string) {
	e, err := openEngine()
	if err != nil {
		fatal(err)
	}
	defer e.Store.Close()

	q := recallQueryFor(text, recallTags)
	q.MaxTokens = recallMaxTokens
	q.Budget = recall.Budget(recallBudget)
	q.TagsMatch = tagmatch.Mode(recallTagsMatch)

	resp, err := e.Recall.Recall(context.Background(), q)
	if err != nil {
		fatal(fmt.Errorf("recall: %w", err))
	}

	fmt.Printf("%d result(s)\n\n", len(resp.Results))
	for i, r := range resp.Results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.Unit.Text)
		fmt.Printf("   id=%s type=%s tags=%s\n", r.Unit.ID, r.Unit.FactType, strings.Join(r.Unit.Tags, ","))
	}
}

// recallQueryFor builds the common query shape the recall and reflect
// commands start from.
func recallQueryFor(text string, tags []string) recall.Query {
	return recall.Query{
		BankID:    bankID,
		Text:      text,
		MaxTokens: 2000,
		Budget:    recall.BudgetMid,
		Tags:      tags,
		TagsMatch: tagmatch.Any,
	}
}
