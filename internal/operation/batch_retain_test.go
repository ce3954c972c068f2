package operation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hindsight-run/hindsight/internal/dedup"
	"github.com/hindsight-run/hindsight/internal/embedding"
	"github.com/hindsight-run/hindsight/internal/extract"
	"github.com/hindsight-run/hindsight/internal/llm"
	"github.com/hindsight-run/hindsight/internal/retain"
	"github.com/hindsight-run/hindsight/internal/storage"
)

func newTestPipeline(client *llm.Fake) *retain.Pipeline {
	return &retain.Pipeline{
		Extractor: extract.NewExtractor(client, llm.NewSemaphore(4)),
		Dedup:     dedup.NewFilterer(),
		Embedder:  embedding.NewFake(8),
	}
}

func factsResponse(text string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"facts": []map[string]any{
			{"text": text, "fact_type": "experience"},
		},
	})
	return raw
}

func TestBatchRetainSingleOperationUnderThreshold(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	client := llm.NewFake()
	client.Responses = []json.RawMessage{factsResponse("went for a run")}
	pipeline := newTestPipeline(client)
	pipeline.Store = db

	tr := NewTracker(db)
	requests := []retain.Request{{BankID: "bank-1", Text: "went for a run", EventDate: time.Now()}}

	results, err := tr.BatchRetain(context.Background(), pipeline, "bank-1", requests)
	if err != nil {
		t.Fatalf("BatchRetain: %v", err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("unexpected results: %+v", results)
	}

	row := db.QueryRow(`SELECT COUNT(*) FROM async_operations WHERE kind = 'retain' AND status = 'completed'`)
	var count int
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count scan: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 completed retain operation, got %d", count)
	}
}

func TestBatchRetainSplitsIntoChildrenOverThreshold(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}

	n := BatchSizeThreshold + 5
	client := llm.NewFake()
	client.Responses = make([]json.RawMessage, n)
	requests := make([]retain.Request, n)
	for i := 0; i < n; i++ {
		client.Responses[i] = factsResponse("fact text")
		requests[i] = retain.Request{BankID: "bank-1", Text: "fact text", EventDate: time.Now()}
	}
	pipeline := newTestPipeline(client)
	pipeline.Store = db

	tr := NewTracker(db)
	results, err := tr.BatchRetain(context.Background(), pipeline, "bank-1", requests)
	if err != nil {
		t.Fatalf("BatchRetain: %v", err)
	}
	if len(results) != n {
		t.Fatalf("expected %d results, got %d", n, len(results))
	}

	var parentCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM async_operations WHERE kind = 'batch_retain_parent'`).Scan(&parentCount); err != nil {
		t.Fatalf("parent count scan: %v", err)
	}
	if parentCount != 1 {
		t.Fatalf("expected exactly 1 parent operation, got %d", parentCount)
	}

	var childCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM async_operations WHERE kind = 'batch_retain_child'`).Scan(&childCount); err != nil {
		t.Fatalf("child count scan: %v", err)
	}
	if childCount != 2 {
		t.Fatalf("expected 2 child operations, got %d", childCount)
	}
}
