package consolidate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hindsight-run/hindsight/internal/embedding"
	"github.com/hindsight-run/hindsight/internal/llm"
	"github.com/hindsight-run/hindsight/internal/logging"
	"github.com/hindsight-run/hindsight/internal/recall"
	"github.com/hindsight-run/hindsight/internal/storage"
	"github.com/hindsight-run/hindsight/internal/tagmatch"
	"github.com/hindsight-run/hindsight/internal/telemetry"
)

var log = logging.GetLogger("consolidate")

// Recaller is the narrow slice of recall.Engine the consolidation
// engine needs: a filtered, read-only lookup against existing
// observations. Kept as an interface so tests can substitute a fake
// without standing up the full hybrid retrieval pipeline.
type Recaller interface {
	Recall(ctx context.Context, q recall.Query) (*recall.Response, error)
}

// Engine runs the consolidation job (§4.5) for one bank at a time.
type Engine struct {
	Store    *storage.Database
	Recall   Recaller
	Embedder embedding.Provider
	Client   llm.Client
	Sem      *llm.Semaphore

	BatchSize         int
	LLMBatchSize      int
	RecallTokenBudget int
	MaxLLMAttempts    int
}

func NewEngine(store *storage.Database, recaller Recaller, embedder embedding.Provider, client llm.Client, sem *llm.Semaphore) *Engine {
	return &Engine{
		Store:             store,
		Recall:            recaller,
		Embedder:          embedder,
		Client:            client,
		Sem:               sem,
		BatchSize:         40,
		LLMBatchSize:      8,
		RecallTokenBudget: 4000,
		MaxLLMAttempts:    3,
	}
}

// Summary reports what one consolidation run did, for logging and for
// the async-operation result_metadata payload (§6: "consolidation: {}").
type Summary struct {
	MemoriesProcessed int
	BatchesSkipped    int
	ProcessedTags     []string
	AnyUntagged       bool
}

// Run reads one batch of at most BatchSize unconsolidated memories for
// bankID, oldest first, processes it in tag-grouped LLM batches
// (§4.5.1) and triggers mental-model refresh (§4.5.3). It does not
// loop: unconsolidated memories beyond the first BatchSize stay
// unconsolidated until a later Run.
func (e *Engine) Run(ctx context.Context, bankID string) (Summary, error) {
	units, err := e.Store.UnconsolidatedBatch(bankID, e.BatchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("read unconsolidated batch: %w", err)
	}
	if len(units) == 0 {
		return Summary{}, nil
	}

	var summary Summary
	seenTags := map[string]bool{}

	for _, group := range groupByTagSet(units) {
		for _, batch := range chunkBatches(group.Units, e.LLMBatchSize) {
			if err := e.processBatch(ctx, bankID, group.Tags, batch); err != nil {
				log.Warn("consolidation batch skipped", "bank_id", bankID, "tags", group.Tags, "error", err)
				summary.BatchesSkipped++
				continue
			}
			summary.MemoriesProcessed += len(batch)
			if len(group.Tags) == 0 {
				summary.AnyUntagged = true
			}
			for _, t := range group.Tags {
				seenTags[t] = true
			}
		}
	}

	for t := range seenTags {
		summary.ProcessedTags = append(summary.ProcessedTags, t)
	}

	if summary.MemoriesProcessed > 0 {
		if err := e.refreshMentalModels(bankID, summary.ProcessedTags, summary.AnyUntagged); err != nil {
			log.Warn("mental model refresh scheduling failed", "bank_id", bankID, "error", err)
		}
	}

	return summary, nil
}

// processBatch runs one LLM batch of facts sharing an identical tag
// set through §4.5.2 steps 1-5.
func (e *Engine) processBatch(ctx context.Context, bankID string, tags []string, facts []storage.MemoryUnit) error {
	perFactObsIDs, unionObs, err := e.parallelRecall(ctx, bankID, tags, facts)
	if err != nil {
		return fmt.Errorf("recall: %w", err)
	}

	sourceFacts, err := e.hydrateSourceFacts(unionObs)
	if err != nil {
		return fmt.Errorf("hydrate source facts: %w", err)
	}

	resp, err := e.callLLM(ctx, facts, unionObs, sourceFacts)
	if err != nil {
		// All retries exhausted: leave the batch unconsolidated for the
		// next run rather than stamping consolidated_at (§4.5.2's retry
		// rule, resolved in favor of spec.md over original_source — see
		// DESIGN.md).
		return err
	}

	factByID := make(map[string]storage.MemoryUnit, len(facts))
	for _, f := range facts {
		factByID[f.ID] = f
	}

	e.executeCreates(resp.Creates, tags, factByID)
	e.executeUpdates(resp.Updates, tags, factByID, perFactObsIDs)
	e.executeDeletes(resp.Deletes, unionObs)

	ids := make([]string, len(facts))
	for i, f := range facts {
		ids[i] = f.ID
	}
	return e.Store.MarkConsolidated(ids)
}

// parallelRecall issues one read-only recall per fact, restricted to
// observations under the batch's tag set (§4.5.2 step 1). Recalls are
// read-only so they're safe to run concurrently; perFactObsIDs is the
// authorization map downstream writes are checked against.
func (e *Engine) parallelRecall(ctx context.Context, bankID string, tags []string, facts []storage.MemoryUnit) (map[string]map[string]bool, map[string]storage.MemoryUnit, error) {
	ctx, span := telemetry.Tracer("consolidate").Start(ctx, telemetry.SpanConsolidationRecall)
	defer span.End()

	// AnyStrict so an untagged batch only ever recalls untagged
	// (global) observations: tagmatch.Any treats an empty query as
	// matching every row, which would let an untagged fact authorize
	// updates against a strictly-tagged observation.
	mode := tagmatch.AnyStrict
	if len(tags) > 0 {
		mode = tagmatch.AllStrict
	}

	type result struct {
		factID string
		obs    []storage.MemoryUnit
	}
	results := make([]result, len(facts))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range facts {
		g.Go(func() error {
			resp, err := e.Recall.Recall(gctx, recall.Query{
				BankID:    bankID,
				Text:      f.Text,
				FactTypes: []storage.FactType{storage.FactObservation},
				Tags:      tags,
				TagsMatch: mode,
				MaxTokens: e.RecallTokenBudget,
				Budget:    recall.BudgetHigh,
			})
			if err != nil {
				return err
			}
			units := make([]storage.MemoryUnit, len(resp.Results))
			for j, r := range resp.Results {
				units[j] = r.Unit
			}
			results[i] = result{factID: f.ID, obs: units}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	perFactObsIDs := make(map[string]map[string]bool, len(facts))
	unionObs := make(map[string]storage.MemoryUnit)
	for _, r := range results {
		obsIDs := make(map[string]bool, len(r.obs))
		for _, obs := range r.obs {
			obsIDs[obs.ID] = true
			unionObs[obs.ID] = obs
		}
		perFactObsIDs[r.factID] = obsIDs
	}
	return perFactObsIDs, unionObs, nil
}

// hydrateSourceFacts resolves every recalled observation's
// source_memory_ids against storage, so the LLM judges an observation
// against the evidence it summarizes rather than its label alone
// (§4.5.2 step 2).
func (e *Engine) hydrateSourceFacts(unionObs map[string]storage.MemoryUnit) (map[string]storage.MemoryUnit, error) {
	seen := map[string]bool{}
	var ids []string
	for _, obs := range unionObs {
		for _, id := range obs.SourceMemoryIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := e.Store.FetchByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]storage.MemoryUnit, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	return byID, nil
}

func (e *Engine) callLLM(ctx context.Context, facts []storage.MemoryUnit, unionObs map[string]storage.MemoryUnit, sourceFacts map[string]storage.MemoryUnit) (batchResponse, error) {
	ctx, span := telemetry.Tracer("consolidate").Start(ctx, telemetry.SpanConsolidationLLM)
	defer span.End()

	if err := e.Sem.Acquire(ctx); err != nil {
		return batchResponse{}, err
	}
	defer e.Sem.Release()

	var lastErr error
	for attempt := 0; attempt < e.MaxLLMAttempts; attempt++ {
		raw, err := e.Client.Call(ctx, buildBatchMessages(facts, unionObs, sourceFacts), []byte(responseSchema), llm.CallOptions{
			Scope:      "consolidate",
			MaxRetries: 1,
			TimeoutSec: 90,
		})
		if err != nil {
			lastErr = err
			continue
		}
		resp, parseErr := parseBatchResponse(raw)
		if parseErr != nil {
			lastErr = parseErr
			continue
		}
		return resp, nil
	}
	return batchResponse{}, fmt.Errorf("consolidation LLM call failed after %d attempts: %w", e.MaxLLMAttempts, lastErr)
}

func buildBatchMessages(facts []storage.MemoryUnit, unionObs map[string]storage.MemoryUnit, sourceFacts map[string]storage.MemoryUnit) []llm.Message {
	var b []byte
	b = append(b, "New facts:\n"...)
	for _, f := range facts {
		b = append(b, fmt.Sprintf("- id=%s fact_type=%s text=%q\n", f.ID, f.FactType, f.Text)...)
	}
	b = append(b, "\nExisting observations:\n"...)
	for _, o := range unionObs {
		b = append(b, fmt.Sprintf("- id=%s text=%q proof_count=%d\n", o.ID, o.Text, o.ProofCount)...)
		for _, sid := range o.SourceMemoryIDs {
			sf, ok := sourceFacts[sid]
			if !ok {
				continue
			}
			b = append(b, fmt.Sprintf("    source: text=%q\n", sf.Text)...)
		}
	}
	return []llm.Message{
		{Role: "system", Content: "You maintain long-term observation memories by synthesizing new facts against existing ones. Create a new observation for a genuinely new pattern, update an existing observation when a new fact supports/refines/contradicts it, and delete an observation that is no longer supported. Every source_fact_ids entry must be one of the new facts' ids listed above."},
		{Role: "user", Content: string(b)},
	}
}

func (e *Engine) executeCreates(creates []createAction, tags []string, factByID map[string]storage.MemoryUnit) {
	for _, c := range creates {
		sourceIDs := resolveFactIDs(c.SourceFactIDs, factByID)
		if len(sourceIDs) == 0 {
			log.Warn("consolidation create skipped: no source facts resolved")
			continue
		}
		var start, end, mentioned *time.Time
		for _, id := range sourceIDs {
			f := factByID[id]
			start = earliest(start, f.OccurredStart)
			end = latest(end, f.OccurredEnd)
			mentioned = latest(mentioned, f.MentionedAt)
		}
		embeds, err := e.Embedder.Encode(context.Background(), []string{c.Text})
		if err != nil {
			log.Warn("consolidation create skipped: embed failed", "error", err)
			continue
		}
		unit := &storage.MemoryUnit{
			BankID:          firstFact(factByID, sourceIDs).BankID,
			Text:            c.Text,
			FactType:        storage.FactObservation,
			Embedding:       embeds[0],
			Tags:            tags,
			OccurredStart:   start,
			OccurredEnd:     end,
			MentionedAt:     mentioned,
			SourceMemoryIDs: sourceIDs,
			ProofCount:      len(sourceIDs),
		}
		if err := e.Store.InsertMemory(unit); err != nil {
			log.Warn("consolidation create failed", "error", err)
		}
	}
}

func (e *Engine) executeUpdates(updates []updateAction, tags []string, factByID map[string]storage.MemoryUnit, perFactObsIDs map[string]map[string]bool) {
	for _, u := range updates {
		authorized := false
		for _, factID := range u.SourceFactIDs {
			if perFactObsIDs[factID][u.ObservationID] {
				authorized = true
				break
			}
		}
		if !authorized {
			log.Warn("consolidation update rejected: cross-tag escalation", "observation_id", u.ObservationID)
			continue
		}

		existing, err := e.Store.GetMemory(u.ObservationID)
		if err != nil {
			log.Warn("consolidation update skipped: observation not found", "observation_id", u.ObservationID, "error", err)
			continue
		}

		sourceIDs := resolveFactIDs(u.SourceFactIDs, factByID)
		mergedSourceIDs := unionIDs(existing.SourceMemoryIDs, sourceIDs)
		mergedTags := tagmatch.Union(existing.Tags, tags)

		start, end, mentioned := existing.OccurredStart, existing.OccurredEnd, existing.MentionedAt
		for _, id := range sourceIDs {
			f := factByID[id]
			start = earliest(start, f.OccurredStart)
			end = latest(end, f.OccurredEnd)
			mentioned = latest(mentioned, f.MentionedAt)
		}

		embeds, err := e.Embedder.Encode(context.Background(), []string{u.Text})
		if err != nil {
			log.Warn("consolidation update skipped: embed failed", "error", err)
			continue
		}

		history := append(append([]storage.HistoryEntry(nil), existing.History...), storage.HistoryEntry{
			PreviousText:    existing.Text,
			ChangedAt:       time.Now().UTC(),
			SourceMemoryIDs: existing.SourceMemoryIDs,
		})

		text := u.Text
		proofCount := len(mergedSourceIDs)
		if err := e.Store.UpdateMemory(u.ObservationID, &storage.MemoryUpdate{
			Text:            &text,
			Embedding:       embeds[0],
			Tags:            mergedTags,
			OccurredStart:   start,
			OccurredEnd:     end,
			MentionedAt:     mentioned,
			SourceMemoryIDs: mergedSourceIDs,
			ProofCount:      &proofCount,
			History:         history,
		}); err != nil {
			log.Warn("consolidation update failed", "observation_id", u.ObservationID, "error", err)
		}
	}
}

func (e *Engine) executeDeletes(deletes []deleteAction, unionObs map[string]storage.MemoryUnit) {
	for _, d := range deletes {
		if _, ok := unionObs[d.ObservationID]; !ok {
			log.Warn("consolidation delete rejected: not in unioned recall", "observation_id", d.ObservationID)
			continue
		}
		if err := e.Store.DeleteMemory(d.ObservationID); err != nil {
			log.Warn("consolidation delete failed", "observation_id", d.ObservationID, "error", err)
		}
	}
}

func resolveFactIDs(ids []string, factByID map[string]storage.MemoryUnit) []string {
	var out []string
	for _, id := range ids {
		if _, ok := factByID[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func firstFact(factByID map[string]storage.MemoryUnit, ids []string) storage.MemoryUnit {
	if len(ids) == 0 {
		return storage.MemoryUnit{}
	}
	return factByID[ids[0]]
}

func unionIDs(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func earliest(cur, candidate *time.Time) *time.Time {
	if candidate == nil {
		return cur
	}
	if cur == nil || candidate.Before(*cur) {
		return candidate
	}
	return cur
}

func latest(cur, candidate *time.Time) *time.Time {
	if candidate == nil {
		return cur
	}
	if cur == nil || candidate.After(*cur) {
		return candidate
	}
	return cur
}
