// Package engine wires every collaborator package together from one
// resolved config.Config, the way the teacher's cmd layer wires its
// database/search/ai managers from pkg/config. This is the single
// construction point cmd/hindsightd and cmd/hindsight both use.
package engine

import (
	"fmt"

	"github.com/hindsight-run/hindsight/internal/config"
	"github.com/hindsight-run/hindsight/internal/consolidate"
	"github.com/hindsight-run/hindsight/internal/crossencoder"
	"github.com/hindsight-run/hindsight/internal/dedup"
	"github.com/hindsight-run/hindsight/internal/embedding"
	"github.com/hindsight-run/hindsight/internal/extract"
	"github.com/hindsight-run/hindsight/internal/llm"
	"github.com/hindsight-run/hindsight/internal/operation"
	"github.com/hindsight-run/hindsight/internal/reflect"
	"github.com/hindsight-run/hindsight/internal/recall"
	"github.com/hindsight-run/hindsight/internal/retain"
	"github.com/hindsight-run/hindsight/internal/storage"
)

// Engine bundles one instance of every collaborator, plus the shared
// storage handle, for one running process.
type Engine struct {
	Config config.Config
	Store  *storage.Database

	Retain      *retain.Pipeline
	Recall      *recall.Engine
	Reflect     *reflect.Engine
	Consolidate *consolidate.Engine
	Operations  *operation.Tracker
}

// New resolves every collaborator from cfg and opens the database.
// Callers are responsible for closing Store when done.
func New(cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		store.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		store.Close()
		return nil, err
	}
	scorer := newScorer(cfg.CrossEncoder)
	client := newLLMClient(cfg.LLM)
	sem := llm.NewSemaphore(cfg.LLM.MaxConcurrency)

	extractor := extract.NewExtractor(client, sem)
	dedupFilterer := dedup.NewFilterer()

	retainPipeline := &retain.Pipeline{
		Extractor: extractor,
		Dedup:     dedupFilterer,
		Embedder:  embedder,
		Store:     store,
	}

	recallEngine := recall.NewEngine(store, embedder, scorer)
	recallEngine.BudgetK = recall.BudgetK{
		Low:  cfg.Recall.BudgetLow,
		Mid:  cfg.Recall.BudgetMid,
		High: cfg.Recall.BudgetHigh,
	}
	recallEngine.DiversityThreshold = cfg.Recall.DiversityThreshold
	recallEngine.Weights = recall.Weights{
		Rerank:    cfg.Recall.WeightRerank,
		TypeBonus: cfg.Recall.WeightTypeBonus,
		Recency:   cfg.Recall.WeightRecency,
		Length:    cfg.Recall.WeightLength,
	}

	reflectEngine := reflect.NewEngine(store, recallEngine, client, sem)

	consolidateEngine := consolidate.NewEngine(store, recallEngine, embedder, client, sem)
	consolidateEngine.BatchSize = cfg.Consolidation.BatchSize
	consolidateEngine.MaxLLMAttempts = cfg.Consolidation.MaxLLMAttempts
	consolidateEngine.RecallTokenBudget = cfg.Consolidation.RecallTokenBudget

	return &Engine{
		Config:      cfg,
		Store:       store,
		Retain:      retainPipeline,
		Recall:      recallEngine,
		Reflect:     reflectEngine,
		Consolidate: consolidateEngine,
		Operations:  operation.NewTracker(store),
	}, nil
}

func (e *Engine) Close() error {
	return e.Store.Close()
}

func newEmbedder(cfg config.EmbeddingConfig) (embedding.Provider, error) {
	switch cfg.Provider {
	case "", "ollama":
		return embedding.NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Dimension), nil
	case "fake":
		return embedding.NewFake(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func newScorer(cfg config.CrossEncoderConfig) crossencoder.Scorer {
	if cfg.Provider == "fake" {
		return crossencoder.NewFake()
	}
	return crossencoder.NewOllamaScorer(cfg.BaseURL, cfg.Model)
}

func newLLMClient(cfg config.LLMConfig) llm.Client {
	switch cfg.Provider {
	case "ollama":
		return llm.NewOllamaClient(cfg.BaseURL, cfg.Model)
	case "fake":
		return llm.NewFake()
	default:
		return llm.NewAnthropicClient(cfg.APIKey, cfg.Model)
	}
}
