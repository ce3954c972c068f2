package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hindsight-run/hindsight/internal/reflect"
)

var reflectTags []string

var reflectCmd = &cobra.Command{
	Use:   "reflect <question>",
	Short: "Answer a question grounded in recalled memories",
	Long: `Reflect recalls against a question, gathers the standing mental models
and directives it drew on, and asks the configured LLM to answer using
only what was recalled.

Examples:
  hindsight reflect "how should I address the user?" --bank alice`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runReflect(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(reflectCmd)
	reflectCmd.Flags().StringSliceVarP(&reflectTags, "tags", "t", nil, "scope reflection to these tags")
}

func runReflect(question string) {
	e, err := openEngine()
	if err != nil {
		fatal(err)
	}
	defer e.Store.Close()

	resp, err := e.Reflect.Reflect(context.Background(), reflect.Query{
		Query: recallQueryFor(question, reflectTags),
	})
	if err != nil {
		fatal(fmt.Errorf("reflect: %w", err))
	}

	fmt.Println(resp.Text)
	fmt.Println()
	fmt.Printf("based on %d memor%s, %d mental model(s), %d directive(s)\n",
		len(resp.BasedOn.Memories), plural(len(resp.BasedOn.Memories), "y", "ies"),
		len(resp.BasedOn.MentalModels), len(resp.BasedOn.Directives))
}
