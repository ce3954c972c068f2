package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/hindsight-run/hindsight/internal/extract"
)

type fakeQuerier struct {
	flags []bool
}

func (f *fakeQuerier) FindSimilarWithinWindow(bankID string, embeddings [][]float32, anchorDate time.Time, windowHours int, threshold float64) ([]bool, error) {
	return f.flags, nil
}

func mkFact(day int) extract.Fact {
	t := time.Date(2025, 1, day, 12, 0, 0, 0, time.UTC)
	return extract.Fact{Text: "fact", FactType: "world", MentionedAt: &t}
}

func TestFilterAgainstDBDropsFlagged(t *testing.T) {
	f := NewFilterer()
	items := []Item{
		{Fact: mkFact(1), Embedding: []float32{1, 0}},
		{Fact: mkFact(1), Embedding: []float32{0, 1}},
	}
	q := &fakeQuerier{flags: []bool{true, false}}

	out, err := f.Filter(context.Background(), q, "bank1", items)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(out))
	}
}

func TestFilterWithinBatchKeepsEarliest(t *testing.T) {
	f := NewFilterer()
	f.Threshold = 0.5
	items := []Item{
		{Fact: mkFact(1), Embedding: []float32{1, 0}},
		{Fact: mkFact(1), Embedding: []float32{1, 0}},
	}
	out := f.filterWithinBatch(items)
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor after within-batch dedup, got %d", len(out))
	}
}

func TestFilterWithinBatchKeepsDistantDates(t *testing.T) {
	f := NewFilterer()
	items := []Item{
		{Fact: mkFact(1), Embedding: []float32{1, 0}},
		{Fact: mkFact(10), Embedding: []float32{1, 0}},
	}
	out := f.filterWithinBatch(items)
	if len(out) != 2 {
		t.Fatalf("expected both facts kept outside the window, got %d", len(out))
	}
}
