package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hindsight-run/hindsight/internal/llm"
	"github.com/hindsight-run/hindsight/internal/logging"
	"github.com/hindsight-run/hindsight/internal/telemetry"
)

var log = logging.GetLogger("extract")

// Extractor turns free text into a list of atomic facts via an LLM
// collaborator, grounded on §4.2. Chunking follows the teacher's
// paragraph-then-sentence splitter (internal/memory/chunker.go);
// concurrency against the LLM is bounded by the shared semaphore
// rather than a package-level limiter, since Go has no
// asyncio.Semaphore-style global.
type Extractor struct {
	Client      llm.Client
	Sem         *llm.Semaphore
	ChunkConfig ChunkConfig
	MaxSubdivide int
}

func NewExtractor(client llm.Client, sem *llm.Semaphore) *Extractor {
	return &Extractor{
		Client:       client,
		Sem:          sem,
		ChunkConfig:  DefaultChunkConfig(),
		MaxSubdivide: 3,
	}
}

// Extract runs chunked extraction over the input and returns the
// concatenated facts from every chunk, in chunk order.
func (e *Extractor) Extract(ctx context.Context, in Input) ([]Fact, error) {
	ctx, span := telemetry.Tracer("retain").Start(ctx, telemetry.SpanRetainExtract)
	defer span.End()

	chunks := e.ChunkConfig.Split(in.Text)
	var facts []Fact
	for _, c := range chunks {
		chunkFacts, err := e.extractChunk(ctx, in, c, len(chunks), 0)
		if err != nil {
			return nil, fmt.Errorf("extract chunk %d: %w", c.Index, err)
		}
		facts = append(facts, chunkFacts...)
	}
	return facts, nil
}

func (e *Extractor) extractChunk(ctx context.Context, in Input, chunk Chunk, totalChunks, depth int) ([]Fact, error) {
	if err := e.Sem.Acquire(ctx); err != nil {
		return nil, err
	}
	raw, err := e.Client.Call(ctx, []llm.Message{
		{Role: "system", Content: "Respond with schema-constrained JSON only."},
		{Role: "user", Content: buildPrompt(in, chunk, totalChunks)},
	}, []byte(responseSchema), llm.CallOptions{Scope: "extract", MaxRetries: 5, TimeoutSec: 60})
	e.Sem.Release()

	if err != nil {
		if errors.Is(err, llm.ErrOutputTooLong) && depth < e.MaxSubdivide && len(chunk.Content) > e.ChunkConfig.MaxChunkSize/2 {
			log.Warn("extraction output too long, subdividing", "chunk", chunk.Index, "depth", depth)
			return e.retryBySubdivision(ctx, in, chunk, depth)
		}
		return nil, err
	}

	resp, err := parseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	facts := make([]Fact, 0, len(resp.Facts))
	for _, f := range resp.Facts {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		facts = append(facts, Fact{
			Text:          f.Text,
			FactType:      f.FactType,
			OccurredStart: parseLenientTime(f.OccurredStart),
			OccurredEnd:   parseLenientTime(f.OccurredEnd),
			MentionedAt:   parseLenientTime(f.MentionedAt),
		})
	}
	return facts, nil
}

// retryBySubdivision splits a single oversized chunk into two halves
// and extracts each independently, per §4.2's "length-exceeds error
// triggers automatic subdivision of the input and retry" rule.
func (e *Extractor) retryBySubdivision(ctx context.Context, in Input, chunk Chunk, depth int) ([]Fact, error) {
	mid := len(chunk.Content) / 2
	halves := []Chunk{
		{Content: chunk.Content[:mid], Index: chunk.Index},
		{Content: chunk.Content[mid:], Index: chunk.Index},
	}
	var facts []Fact
	for _, h := range halves {
		sub, err := e.extractChunk(ctx, in, h, 2, depth+1)
		if err != nil {
			return nil, err
		}
		facts = append(facts, sub...)
	}
	return facts, nil
}

var lenientLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseLenientTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range lenientLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
