// Package recall implements hybrid retrieval (§4.6): three parallel
// candidate pools, cross-encoder reranking, score composition,
// diversity clustering, and token-budgeted assembly.
package recall

import (
	"time"

	"github.com/hindsight-run/hindsight/internal/storage"
	"github.com/hindsight-run/hindsight/internal/tagmatch"
)

// Budget names the three preset candidate-pool sizes from §4.6's last
// line: "LOW ≈ 20, MID ≈ 60, HIGH ≈ 200".
type Budget string

const (
	BudgetLow  Budget = "low"
	BudgetMid  Budget = "mid"
	BudgetHigh Budget = "high"
)

// BudgetK maps a budget level to the per-pool candidate count K.
type BudgetK struct {
	Low, Mid, High int
}

func DefaultBudgetK() BudgetK { return BudgetK{Low: 20, Mid: 60, High: 200} }

func (b BudgetK) For(level Budget) int {
	switch level {
	case BudgetMid:
		return b.Mid
	case BudgetHigh:
		return b.High
	default:
		return b.Low
	}
}

// Query is one recall request (§4.6).
type Query struct {
	BankID         string
	Text           string
	MaxTokens      int
	Budget         Budget
	FactTypes      []storage.FactType
	Tags           []string
	TagsMatch      tagmatch.Mode
	QuestionDate   *time.Time
	IncludeChunks  bool
	MaxChunkTokens int
}

// Result is one ranked memory with its composed score. It does not
// record which candidate pools surfaced the memory.
type Result struct {
	Unit  storage.MemoryUnit
	Score float64
}

// Response is the full outcome of a recall call.
type Response struct {
	Results []Result
	Chunks  []Chunk
}

// Chunk is a document excerpt fetched independently of max_tokens when
// include_chunks is requested (§4.6 step 8).
type Chunk struct {
	DocumentID string
	Text       string
}
