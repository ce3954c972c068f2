package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hindsight-run/hindsight/internal/retain"
)

var (
	retainTags    []string
	retainContext string
)

var retainCmd = &cobra.Command{
	Use:   "retain <text>",
	Short: "Extract and store memories from text",
	Long: `Run the retain pipeline over text: extract atomic facts, embed and
deduplicate them against the bank, and store what survives.

Examples:
  hindsight retain "the user prefers dark mode" --bank alice
  hindsight retain "met with finance on Tuesday" --bank alice --tags work,meetings`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRetain(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(retainCmd)
	retainCmd.Flags().StringSliceVarP(&retainTags, "tags", "t", nil, "tags to attach to extracted facts")
	retainCmd.Flags().StringVar(&retainContext, "context", "", "surrounding context passed to extraction")
}

func runRetain(text string) {
	e, err := openEngine()
	if err != nil {
		fatal(err)
	}
	defer e.Store.Close()

	units, err := e.Retain.Retain(context.Background(), retain.Request{
		BankID:    bankID,
		Text:      text,
		Context:   retainContext,
		EventDate: time.Now().UTC(),
		Tags:      retainTags,
	})
	if err != nil {
		fatal(fmt.Errorf("retain: %w", err))
	}

	fmt.Printf("Stored %d memor%s\n", len(units), plural(len(units), "y", "ies"))
	for _, u := range units {
		fmt.Printf("  %s [%s] %s\n", u.ID, u.FactType, u.Text)
	}
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
