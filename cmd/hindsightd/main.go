package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hindsight-run/hindsight/internal/config"
	"github.com/hindsight-run/hindsight/internal/engine"
	"github.com/hindsight-run/hindsight/internal/logging"
	"github.com/hindsight-run/hindsight/internal/telemetry"
)

var (
	// Version is set during build.
	Version = "0.1.0"

	interval time.Duration
)

var rootCmd = &cobra.Command{
	Use:     "hindsightd",
	Short:   "Background worker for the memory engine",
	Version: Version,
	Long: `hindsightd periodically sweeps every bank, running one consolidation
pass (§4.5) and draining any mental-model refreshes it schedules
(§4.5.3).`,
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	rootCmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "how often to sweep all banks")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
	log := logging.GetLogger("hindsightd")

	shutdownTelemetry, err := telemetry.Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting telemetry: %v\n", err)
		os.Exit(1)
	}
	defer shutdownTelemetry(context.Background())

	e, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting engine: %v\n", err)
		os.Exit(1)
	}
	defer e.Store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := config.Watch(func(reloaded config.Config) { applyConfigUpdate(e, log, reloaded) }); err != nil {
		log.Warn("config watch unavailable", "error", err)
	}

	log.Info("hindsightd starting", "interval", interval.String())
	sweep(ctx, e, log)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("hindsightd stopped")
			return
		case <-ticker.C:
			sweep(ctx, e, log)
		}
	}
}

// applyConfigUpdate picks up consolidation tuning changes from an
// edited config file without restarting the daemon.
func applyConfigUpdate(e *engine.Engine, log *logging.Logger, reloaded config.Config) {
	e.Config.Consolidation = reloaded.Consolidation
	e.Consolidate.BatchSize = reloaded.Consolidation.BatchSize
	e.Consolidate.MaxLLMAttempts = reloaded.Consolidation.MaxLLMAttempts
	e.Consolidate.RecallTokenBudget = reloaded.Consolidation.RecallTokenBudget
	log.Info("config reloaded", "batch_size", e.Consolidate.BatchSize, "max_llm_attempts", e.Consolidate.MaxLLMAttempts)
}

func sweep(ctx context.Context, e *engine.Engine, log *logging.Logger) {
	if !e.Config.Consolidation.Enabled {
		return
	}

	banks, err := e.Store.ListBankIDs()
	if err != nil {
		log.Error("list banks failed", "error", err)
		return
	}

	for _, bankID := range banks {
		if ctx.Err() != nil {
			return
		}
		summary, err := e.Consolidate.Run(ctx, bankID)
		if err != nil {
			log.Error("consolidation failed", "bank_id", bankID, "error", err)
			continue
		}
		if summary.MemoriesProcessed > 0 {
			log.Info("consolidation pass complete", "bank_id", bankID, "processed", summary.MemoriesProcessed, "skipped", summary.BatchesSkipped)
		}

		refreshed, err := e.Reflect.RunPendingRefreshes(ctx)
		if err != nil {
			log.Error("mental model refresh failed", "bank_id", bankID, "error", err)
			continue
		}
		if refreshed > 0 {
			log.Info("mental models refreshed", "bank_id", bankID, "count", refreshed)
		}
	}
}
