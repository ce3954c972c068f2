package extract

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hindsight-run/hindsight/internal/llm"
)

func TestExtractSingleChunk(t *testing.T) {
	fake := llm.NewFake()
	fake.Responses = []json.RawMessage{
		json.RawMessage(`{"facts":[{"text":"I was terrified walking home alone","fact_type":"experience","occurred_start":"2025-01-01"}]}`),
	}
	e := NewExtractor(fake, llm.NewSemaphore(4))

	facts, err := e.Extract(context.Background(), Input{
		Text:      "I was terrified walking home alone last night.",
		EventDate: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	if facts[0].FactType != "experience" {
		t.Errorf("fact_type = %q, want experience", facts[0].FactType)
	}
	if facts[0].OccurredStart == nil {
		t.Errorf("expected occurred_start to be parsed")
	}
}

func TestExtractSubdividesOnTooLong(t *testing.T) {
	fake := llm.NewFake()
	fake.Errors = []error{llm.ErrOutputTooLong, nil, nil}
	fake.Responses = []json.RawMessage{
		nil,
		json.RawMessage(`{"facts":[{"text":"first half fact","fact_type":"world"}]}`),
		json.RawMessage(`{"facts":[{"text":"second half fact","fact_type":"world"}]}`),
	}
	e := NewExtractor(fake, llm.NewSemaphore(4))
	e.ChunkConfig = ChunkConfig{MaxChunkSize: 10, OverlapSize: 2, MinChunkSize: 1}

	facts, err := e.Extract(context.Background(), Input{
		Text:      "this text is definitely longer than ten characters",
		EventDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts from subdivided halves, got %d", len(facts))
	}
}
