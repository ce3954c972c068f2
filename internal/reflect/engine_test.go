package reflect

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hindsight-run/hindsight/internal/crossencoder"
	"github.com/hindsight-run/hindsight/internal/embedding"
	"github.com/hindsight-run/hindsight/internal/llm"
	"github.com/hindsight-run/hindsight/internal/recall"
	"github.com/hindsight-run/hindsight/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *storage.Database, *llm.Fake) {
	t.Helper()
	store, err := storage.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	recaller := recall.NewEngine(store, embedding.NewFake(8), crossencoder.NewFake())
	client := llm.NewFake()
	return NewEngine(store, recaller, client, llm.NewSemaphore(4)), store, client
}

func TestReflectReturnsBasedOnAlwaysPopulated(t *testing.T) {
	e, store, client := newTestEngine(t)
	if _, err := store.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	resp, _ := json.Marshal(map[string]string{"text": "I don't know anything about that yet."})
	client.Responses = []json.RawMessage{resp}

	out, err := e.Reflect(context.Background(), Query{Query: recall.Query{BankID: "bank-1", Text: "anything?", MaxTokens: 1000}})
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if out.BasedOn.Memories == nil || out.BasedOn.MentalModels == nil || out.BasedOn.Directives == nil {
		t.Fatalf("expected based_on fields to be empty slices, never nil: %+v", out.BasedOn)
	}
	if len(out.BasedOn.Memories) != 0 {
		t.Fatalf("expected no memories recalled on empty bank")
	}
}

func TestReflectPopulatesBasedOnFromRecallAndModels(t *testing.T) {
	e, store, client := newTestEngine(t)
	if _, err := store.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}

	now := time.Now()
	emb, _ := embedding.NewFake(8).Encode(context.Background(), []string{"I enjoy long walks on the beach"})
	unit := &storage.MemoryUnit{BankID: "bank-1", Text: "I enjoy long walks on the beach", FactType: storage.FactExperience, Embedding: emb[0], MentionedAt: &now}
	if err := store.InsertMemory(unit); err != nil {
		t.Fatalf("InsertMemory: %v", err)
	}

	model := &storage.MentalModel{BankID: "bank-1", Name: "preferences", Content: "likes the outdoors"}
	if err := store.CreateMentalModel(model); err != nil {
		t.Fatalf("CreateMentalModel: %v", err)
	}
	dir := &storage.Directive{BankID: "bank-1", Name: "tone", Content: "be warm", IsActive: true}
	if err := store.CreateDirective(dir); err != nil {
		t.Fatalf("CreateDirective: %v", err)
	}

	resp, _ := json.Marshal(map[string]string{"text": "You enjoy the outdoors."})
	client.Responses = []json.RawMessage{resp}

	out, err := e.Reflect(context.Background(), Query{Query: recall.Query{BankID: "bank-1", Text: "I enjoy long walks on the beach", MaxTokens: 1000}})
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if out.Text != "You enjoy the outdoors." {
		t.Fatalf("unexpected text: %q", out.Text)
	}
	if len(out.BasedOn.Memories) != 1 || out.BasedOn.Memories[0] != unit.ID {
		t.Fatalf("expected recalled memory in based_on, got %+v", out.BasedOn.Memories)
	}
	if len(out.BasedOn.MentalModels) != 1 || out.BasedOn.MentalModels[0] != model.ID {
		t.Fatalf("expected mental model in based_on, got %+v", out.BasedOn.MentalModels)
	}
	if len(out.BasedOn.Directives) != 1 || out.BasedOn.Directives[0] != dir.ID {
		t.Fatalf("expected directive in based_on, got %+v", out.BasedOn.Directives)
	}
}
