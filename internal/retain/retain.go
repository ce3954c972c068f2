// Package retain orchestrates the write path (§2 component 7): extract
// → embed → dedup → store, the only component that calls all four of
// the extractor, embedding provider, dedup filter, and storage layer.
package retain

import (
	"context"
	"fmt"
	"time"

	"github.com/hindsight-run/hindsight/internal/dedup"
	"github.com/hindsight-run/hindsight/internal/embedding"
	"github.com/hindsight-run/hindsight/internal/extract"
	"github.com/hindsight-run/hindsight/internal/logging"
	"github.com/hindsight-run/hindsight/internal/storage"
)

var log = logging.GetLogger("retain")

type Pipeline struct {
	Extractor *extract.Extractor
	Dedup     *dedup.Filterer
	Embedder  embedding.Provider
	Store     *storage.Database
}

// Request is one retain call: free text plus the caller's authoritative
// timestamp, which always wins over any mentioned_at the extractor
// suggests (§4.2: "optional suggested mentioned_at (overridden by the
// caller's authoritative value)").
type Request struct {
	BankID      string
	Text        string
	Context     string
	EventDate   time.Time
	MentionedAt *time.Time
	Tags        []string
	Metadata    map[string]any
	DocumentID  *string
}

// Retain runs the full write pipeline and returns the memory units
// that were actually inserted (duplicates are silently dropped, per
// §4.3, and are not part of the return value).
func (p *Pipeline) Retain(ctx context.Context, req Request) ([]storage.MemoryUnit, error) {
	if _, err := p.Store.EnsureBank(req.BankID, req.BankID); err != nil {
		return nil, fmt.Errorf("ensure bank: %w", err)
	}

	facts, err := p.Extractor.Extract(ctx, extract.Input{
		Text:      req.Text,
		Context:   req.Context,
		EventDate: req.EventDate,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if len(facts) == 0 {
		return nil, nil
	}

	mentionedAt := req.MentionedAt
	if mentionedAt == nil {
		mentionedAt = &req.EventDate
	}

	texts := make([]string, len(facts))
	for i, f := range facts {
		texts[i] = f.Text
	}
	embeddings, err := p.Embedder.Encode(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(facts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d facts", len(embeddings), len(facts))
	}

	items := make([]dedup.Item, len(facts))
	for i, f := range facts {
		f.MentionedAt = mentionedAt
		items[i] = dedup.Item{Fact: f, Embedding: embeddings[i]}
	}

	survivors, err := p.Dedup.Filter(ctx, p.Store, req.BankID, items)
	if err != nil {
		return nil, fmt.Errorf("dedup: %w", err)
	}
	if len(survivors) < len(items) {
		log.Info("dedup dropped facts", "bank_id", req.BankID, "input", len(items), "kept", len(survivors))
	}

	units := make([]storage.MemoryUnit, 0, len(survivors))
	for _, it := range survivors {
		unit := &storage.MemoryUnit{
			BankID:        req.BankID,
			Text:          it.Fact.Text,
			FactType:      storage.FactType(it.Fact.FactType),
			Embedding:     it.Embedding,
			Tags:          req.Tags,
			Metadata:      req.Metadata,
			EventDate:     req.EventDate,
			OccurredStart: it.Fact.OccurredStart,
			OccurredEnd:   it.Fact.OccurredEnd,
			MentionedAt:   it.Fact.MentionedAt,
			DocumentID:    req.DocumentID,
		}
		if err := p.Store.InsertMemory(unit); err != nil {
			return nil, fmt.Errorf("insert memory: %w", err)
		}
		units = append(units, *unit)
	}
	return units, nil
}
