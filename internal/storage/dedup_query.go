package storage

import (
	"fmt"
	"time"

	"github.com/hindsight-run/hindsight/internal/bestdate"
)

// FindSimilarWithinWindow implements §4.1's
// find_similar_within_window: for each (text, embedding) candidate,
// reports whether an existing row in the bank is a near-duplicate
// (cosine similarity > threshold) within ±windowHours of anchorDate on
// the best-date chain. Grounded on the batched-query shape of
// original_source's deduplication.py (one call per 12h bucket).
func (d *Database) FindSimilarWithinWindow(
	bankID string,
	embeddings [][]float32,
	anchorDate time.Time,
	windowHours int,
	threshold float64,
) ([]bool, error) {
	lower := anchorDate.Add(-time.Duration(windowHours) * time.Hour)
	upper := anchorDate.Add(time.Duration(windowHours) * time.Hour)

	set, err := d.workingSet(bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to load window candidates: %w", err)
	}

	var windowed []MemoryUnit
	for _, unit := range set {
		best := bestdate.Best(bestdate.Fact{OccurredStart: unit.OccurredStart, OccurredEnd: unit.OccurredEnd, MentionedAt: unit.MentionedAt})
		if best == nil {
			continue
		}
		if best.Before(lower) || best.After(upper) {
			continue
		}
		windowed = append(windowed, unit)
	}

	flags := make([]bool, len(embeddings))
	for i, emb := range embeddings {
		for _, unit := range windowed {
			if len(unit.Embedding) == 0 {
				continue
			}
			if cosineSimilarity(emb, unit.Embedding) > threshold {
				flags[i] = true
				break
			}
		}
	}
	return flags, nil
}
