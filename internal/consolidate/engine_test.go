package consolidate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hindsight-run/hindsight/internal/embedding"
	"github.com/hindsight-run/hindsight/internal/llm"
	"github.com/hindsight-run/hindsight/internal/storage"
)

func insertFact(t *testing.T, db *storage.Database, bankID, text string, tags []string) storage.MemoryUnit {
	t.Helper()
	unit := &storage.MemoryUnit{
		BankID:    bankID,
		Text:      text,
		FactType:  storage.FactExperience,
		Embedding: []float32{0.1, 0.2, 0.3},
		Tags:      tags,
	}
	if err := db.InsertMemory(unit); err != nil {
		t.Fatalf("InsertMemory: %v", err)
	}
	return *unit
}

func insertObservation(t *testing.T, db *storage.Database, bankID, text string, tags []string) storage.MemoryUnit {
	t.Helper()
	unit := &storage.MemoryUnit{
		BankID:    bankID,
		Text:      text,
		FactType:  storage.FactObservation,
		Embedding: []float32{0.1, 0.2, 0.3},
		Tags:      tags,
	}
	if err := db.InsertMemory(unit); err != nil {
		t.Fatalf("InsertMemory: %v", err)
	}
	return *unit
}

func TestProcessBatchCreatesObservationFromFacts(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	f1 := insertFact(t, db, "bank-1", "likes hiking", nil)

	recaller := &fakeRecaller{}
	client := llm.NewFake()
	resp, _ := json.Marshal(batchResponse{
		Creates: []createAction{{Text: "enjoys outdoor activities", SourceFactIDs: []string{f1.ID}}},
	})
	client.Responses = []json.RawMessage{resp}

	e := NewEngine(db, recaller, embedding.NewFake(3), client, llm.NewSemaphore(4))
	summary, err := e.Run(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.MemoriesProcessed != 1 {
		t.Fatalf("expected 1 memory processed, got %d", summary.MemoriesProcessed)
	}

	got, err := db.FetchByIDs([]string{f1.ID})
	if err != nil {
		t.Fatalf("FetchByIDs: %v", err)
	}
	if got[0].ConsolidatedAt == nil {
		t.Fatalf("expected fact to be marked consolidated")
	}
}

func TestProcessBatchUpdateRejectedOnCrossTagEscalation(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	f1 := insertFact(t, db, "bank-1", "new detail", []string{"work"})
	// Observation exists but under a different, non-overlapping tag set;
	// the fake recaller still "recalls" it, simulating an LLM trying to
	// update an observation the fact's own authorized recall never saw.
	obs := insertObservation(t, db, "bank-1", "unrelated observation", []string{"personal"})

	recaller := &fakeRecaller{} // empty: fact's recall authorizes nothing
	client := llm.NewFake()
	resp, _ := json.Marshal(batchResponse{
		Updates: []updateAction{{ObservationID: obs.ID, Text: "escalated text", SourceFactIDs: []string{f1.ID}}},
	})
	client.Responses = []json.RawMessage{resp}

	e := NewEngine(db, recaller, embedding.NewFake(3), client, llm.NewSemaphore(4))
	if _, err := e.Run(context.Background(), "bank-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	after, err := db.GetMemory(obs.ID)
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if after.Text != "unrelated observation" {
		t.Fatalf("expected update to be rejected, got text %q", after.Text)
	}
}

func TestProcessBatchUpdateAuthorizedWhenObservationRecalled(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	f1 := insertFact(t, db, "bank-1", "confirms the pattern again", []string{"work"})
	obs := insertObservation(t, db, "bank-1", "original observation", []string{"work"})

	recaller := &fakeRecaller{units: []storage.MemoryUnit{obs}}
	client := llm.NewFake()
	resp, _ := json.Marshal(batchResponse{
		Updates: []updateAction{{ObservationID: obs.ID, Text: "refined observation", SourceFactIDs: []string{f1.ID}}},
	})
	client.Responses = []json.RawMessage{resp}

	e := NewEngine(db, recaller, embedding.NewFake(3), client, llm.NewSemaphore(4))
	if _, err := e.Run(context.Background(), "bank-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	after, err := db.GetMemory(obs.ID)
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if after.Text != "refined observation" {
		t.Fatalf("expected update to apply, got text %q", after.Text)
	}
	if len(after.History) != 1 || after.History[0].PreviousText != "original observation" {
		t.Fatalf("expected one history entry preserving prior text, got %+v", after.History)
	}
}

func TestProcessBatchDeleteRejectedOutsideUnionedRecall(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	f1 := insertFact(t, db, "bank-1", "a fact", nil)
	obs := insertObservation(t, db, "bank-1", "stale observation", nil)

	recaller := &fakeRecaller{} // obs never recalled
	client := llm.NewFake()
	resp, _ := json.Marshal(batchResponse{
		Deletes: []deleteAction{{ObservationID: obs.ID}},
	})
	client.Responses = []json.RawMessage{resp}

	e := NewEngine(db, recaller, embedding.NewFake(3), client, llm.NewSemaphore(4))
	if _, err := e.Run(context.Background(), "bank-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	_ = f1

	if _, err := db.GetMemory(obs.ID); err != nil {
		t.Fatalf("expected observation to survive rejected delete, got error: %v", err)
	}
}

func TestRunSkipsBatchAfterExhaustingLLMAttempts(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	f1 := insertFact(t, db, "bank-1", "a fact", nil)

	recaller := &fakeRecaller{}
	client := llm.NewFake()
	client.Errors = []error{llm.ErrLLMFailed, llm.ErrLLMFailed, llm.ErrLLMFailed}

	e := NewEngine(db, recaller, embedding.NewFake(3), client, llm.NewSemaphore(4))
	summary, err := e.Run(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.BatchesSkipped != 1 {
		t.Fatalf("expected 1 skipped batch, got %d", summary.BatchesSkipped)
	}

	got, err := db.FetchByIDs([]string{f1.ID})
	if err != nil {
		t.Fatalf("FetchByIDs: %v", err)
	}
	if got[0].ConsolidatedAt != nil {
		t.Fatalf("expected fact to remain unconsolidated after exhausted retries")
	}
}
