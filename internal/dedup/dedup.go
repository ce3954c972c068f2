// Package dedup implements the two-pass duplicate filter described in
// spec.md §4.3, grounded on original_source's
// hindsight_api/engine/retain/deduplication.py: group-by-anchor-bucket
// batching against the database, then an order-sensitive pairwise pass
// within the batch itself.
package dedup

import (
	"context"
	"math"
	"time"

	"github.com/hindsight-run/hindsight/internal/bestdate"
	"github.com/hindsight-run/hindsight/internal/extract"
)

const (
	DefaultThreshold   = 0.92
	DefaultWindowHours = 24
	bucketHours        = 12
)

// Item is a fact paired with its embedding, ready for the dedup pass
// before it's written to storage.
type Item struct {
	Fact      extract.Fact
	Embedding []float32
}

// Filterer runs the against-DB and within-batch dedup passes for one
// bank. It only needs the similarity-window query from storage, not
// the full Database, so tests can fake it.
type Filterer struct {
	Threshold   float64
	WindowHours int
}

func NewFilterer() *Filterer {
	return &Filterer{Threshold: DefaultThreshold, WindowHours: DefaultWindowHours}
}

// SimilarityWindowQuerier is the narrow slice of storage.Database the
// against-DB pass needs.
type SimilarityWindowQuerier interface {
	FindSimilarWithinWindow(bankID string, embeddings [][]float32, anchorDate time.Time, windowHours int, threshold float64) ([]bool, error)
}

// Filter drops facts that duplicate an existing row, then drops facts
// that duplicate an earlier fact within the same batch, returning only
// the survivors in their original relative order.
func (f *Filterer) Filter(ctx context.Context, q SimilarityWindowQuerier, bankID string, items []Item) ([]Item, error) {
	survivors, err := f.filterAgainstDB(q, bankID, items)
	if err != nil {
		return nil, err
	}
	return f.filterWithinBatch(survivors), nil
}

// filterAgainstDB groups items into 12-hour anchor buckets (per
// §4.3.1: "facts are grouped by 12-hour anchor buckets") and issues one
// batched similarity+window query per bucket, preserving input order
// in the result.
func (f *Filterer) filterAgainstDB(q SimilarityWindowQuerier, bankID string, items []Item) ([]Item, error) {
	type bucketed struct {
		anchor  time.Time
		indices []int
	}
	buckets := map[int64]*bucketed{}
	var order []int64

	for i, it := range items {
		when := bestdate.Best(fact(it.Fact))
		if when == nil {
			buckets[noBucketKey(i)] = &bucketed{anchor: time.Time{}, indices: []int{i}}
			order = append(order, noBucketKey(i))
			continue
		}
		key := when.Unix() / int64(bucketHours*3600)
		b, ok := buckets[key]
		if !ok {
			b = &bucketed{anchor: *when}
			buckets[key] = b
			order = append(order, key)
		}
		b.indices = append(b.indices, i)
	}

	isDup := make([]bool, len(items))
	for _, key := range order {
		b := buckets[key]
		embeddings := make([][]float32, len(b.indices))
		for j, idx := range b.indices {
			embeddings[j] = items[idx].Embedding
		}
		flags, err := q.FindSimilarWithinWindow(bankID, embeddings, b.anchor, f.WindowHours, f.Threshold)
		if err != nil {
			return nil, err
		}
		for j, idx := range b.indices {
			if j < len(flags) {
				isDup[idx] = flags[j]
			}
		}
	}

	var survivors []Item
	for i, it := range items {
		if !isDup[i] {
			survivors = append(survivors, it)
		}
	}
	return survivors, nil
}

// filterWithinBatch compares the survivors pairwise, dropping any fact
// that duplicates an earlier one in the slice — order-sensitive, the
// earliest-indexed fact always wins.
func (f *Filterer) filterWithinBatch(items []Item) []Item {
	kept := make([]Item, 0, len(items))
	for _, candidate := range items {
		dup := false
		for _, keptItem := range kept {
			if isDuplicate(candidate, keptItem, f.Threshold, f.WindowHours) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func isDuplicate(a, b Item, threshold float64, windowHours int) bool {
	if cosineSimilarity(a.Embedding, b.Embedding) <= threshold {
		return false
	}
	da := bestdate.Best(fact(a.Fact))
	db := bestdate.Best(fact(b.Fact))
	if da == nil || db == nil {
		return false
	}
	delta := da.Sub(*db)
	if delta < 0 {
		delta = -delta
	}
	return delta <= time.Duration(windowHours)*time.Hour
}

func fact(f extract.Fact) bestdate.Fact {
	return bestdate.Fact{
		OccurredStart: f.OccurredStart,
		OccurredEnd:   f.OccurredEnd,
		MentionedAt:   f.MentionedAt,
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// noBucketKey gives each fact with no resolvable date its own unique
// bucket so it never gets grouped with an unrelated undated fact.
func noBucketKey(i int) int64 { return int64(-(i + 1)) }
