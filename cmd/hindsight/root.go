package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hindsight-run/hindsight/internal/config"
	"github.com/hindsight-run/hindsight/internal/engine"
	"github.com/hindsight-run/hindsight/internal/telemetry"
)

var (
	// Version is set during build.
	Version = "0.1.0"

	bankID string
)

var rootCmd = &cobra.Command{
	Use:     "hindsight",
	Short:   "Memory engine for conversational agents",
	Version: Version,
	Long: `hindsight stores, consolidates, and recalls memories for a conversational
agent's memory bank.

Examples:
  hindsight retain "the user prefers dark mode" --bank alice
  hindsight recall "what does the user prefer?" --bank alice
  hindsight reflect "how should I address the user?" --bank alice
  hindsight consolidate --bank alice`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&bankID, "bank", "b", "default", "memory bank id")
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openEngine() (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := telemetry.Init(); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return engine.New(cfg)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
