package recall

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hindsight-run/hindsight/internal/crossencoder"
	"github.com/hindsight-run/hindsight/internal/embedding"
	"github.com/hindsight-run/hindsight/internal/logging"
	"github.com/hindsight-run/hindsight/internal/storage"
	"github.com/hindsight-run/hindsight/internal/telemetry"
)

var log = logging.GetLogger("recall")

// Engine runs the hybrid retrieval pipeline (§4.6).
type Engine struct {
	Store              *storage.Database
	Embedder           embedding.Provider
	Scorer             crossencoder.Scorer
	BudgetK            BudgetK
	Weights            Weights
	DiversityThreshold float64
}

func NewEngine(store *storage.Database, embedder embedding.Provider, scorer crossencoder.Scorer) *Engine {
	return &Engine{
		Store:              store,
		Embedder:           embedder,
		Scorer:             scorer,
		BudgetK:            DefaultBudgetK(),
		Weights:            DefaultWeights(),
		DiversityThreshold: 0.75,
	}
}

// Recall runs the full §4.6 pipeline: analyze, generate candidates
// from three pools, union+dedupe, rerank, compose scores, diversity
// cluster, and token-budget the assembly.
func (e *Engine) Recall(ctx context.Context, q Query) (*Response, error) {
	now := time.Now()
	anchor, _ := resolveAnchorDate(q.Text, q.QuestionDate, now)
	k := e.BudgetK.For(q.Budget)

	filters := storage.Filters{
		BankID:    q.BankID,
		FactTypes: q.FactTypes,
		Tags:      q.Tags,
		TagsMatch: q.TagsMatch,
	}

	candidates, err := e.candidatePool(ctx, q, filters, anchor, k)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Response{}, nil
	}

	reranked, err := e.rerank(ctx, q.Text, candidates)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	for i := range reranked {
		u := reranked[i].unit
		bonus := typeBonus(u.FactType)
		length := lengthBonus(u.Text)
		recency := recencyScore(u, now)
		reranked[i].score = composeScore(reranked[i].score, bonus, recency, length, e.Weights)
	}

	representatives := clusterAndSelect(reranked, e.DiversityThreshold)
	sort.Slice(representatives, func(i, j int) bool { return representatives[i].score > representatives[j].score })

	resp := &Response{}
	used := 0
	// max_tokens = 0 means no result budget at all — chunk fetching
	// below is independent and still runs (§4.6 step 8, last line).
	for _, r := range representatives {
		if q.MaxTokens <= 0 {
			break
		}
		tokens := estimateTokens(r.unit.Text)
		if used+tokens > q.MaxTokens && len(resp.Results) > 0 {
			break
		}
		resp.Results = append(resp.Results, Result{Unit: r.unit, Score: r.score})
		used += tokens
		if used >= q.MaxTokens {
			break
		}
	}

	if q.IncludeChunks {
		resp.Chunks = e.fetchChunks(representatives, q.MaxChunkTokens)
	}

	return resp, nil
}

// candidatePool generates the three pools, merges by ID, and applies
// fact-type/tag/date filtering (§4.6 steps 2-4). The storage layer's
// candidate queries already apply filters internally; this only
// handles the union+dedupe.
func (e *Engine) candidatePool(ctx context.Context, q Query, filters storage.Filters, anchor time.Time, k int) ([]scored, error) {
	ctx, span := telemetry.Tracer("recall").Start(ctx, telemetry.SpanRecallCandidates)
	defer span.End()

	queryEmbedding, err := e.Embedder.Encode(ctx, []string{q.Text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	dense, err := e.Store.CandidatesByDense(queryEmbedding[0], filters, k)
	if err != nil {
		return nil, fmt.Errorf("dense candidates: %w", err)
	}
	sparse, err := e.Store.CandidatesBySparse(q.Text, filters, k)
	if err != nil {
		return nil, fmt.Errorf("sparse candidates: %w", err)
	}
	temporal, err := e.Store.CandidatesByTemporal(anchor, filters, k)
	if err != nil {
		return nil, fmt.Errorf("temporal candidates: %w", err)
	}

	seen := make(map[string]bool)
	var merged []scored
	for _, pool := range [][]storage.Scored{dense, sparse, temporal} {
		for _, c := range pool {
			if seen[c.Unit.ID] {
				continue
			}
			seen[c.Unit.ID] = true
			merged = append(merged, scored{unit: c.Unit, score: c.Score})
		}
	}
	return merged, nil
}

// rerank scores every candidate against the query with the
// cross-encoder, replacing the pool score with the rerank score —
// step 5 of §4.6.
func (e *Engine) rerank(ctx context.Context, query string, candidates []scored) ([]scored, error) {
	_, span := telemetry.Tracer("recall").Start(ctx, telemetry.SpanRecallRerank)
	defer span.End()

	pairs := make([]crossencoder.Pair, len(candidates))
	for i, c := range candidates {
		pairs[i] = crossencoder.Pair{Query: query, Doc: c.unit.Text}
	}
	scores, err := e.Scorer.Predict(ctx, pairs)
	if err != nil {
		return nil, err
	}
	out := make([]scored, len(candidates))
	for i, c := range candidates {
		out[i] = scored{unit: c.unit, score: scores[i]}
	}
	return out, nil
}

func (e *Engine) fetchChunks(representatives []scored, maxChunkTokens int) []Chunk {
	var chunks []Chunk
	used := 0
	for _, r := range representatives {
		if r.unit.DocumentID == nil {
			continue
		}
		doc, err := e.Store.GetDocument(*r.unit.DocumentID)
		if err != nil {
			log.Warn("chunk fetch: document lookup failed", "document_id", *r.unit.DocumentID, "error", err)
			continue
		}
		text := doc.OriginalText
		if maxChunkTokens > 0 {
			maxChars := maxChunkTokens * 4
			if used+len(text) > maxChars && len(chunks) > 0 {
				break
			}
			if len(text) > maxChars {
				text = text[:maxChars]
			}
		}
		chunks = append(chunks, Chunk{DocumentID: doc.ID, Text: text})
		used += len(text)
	}
	return chunks
}

// estimateTokens follows §4.6 step 8's "estimated as chars/4" rule.
func estimateTokens(text string) int {
	return len(text) / 4
}
