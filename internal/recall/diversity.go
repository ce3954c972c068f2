package recall

import (
	"math"
	"time"

	"github.com/hindsight-run/hindsight/internal/bestdate"
	"github.com/hindsight-run/hindsight/internal/storage"
)

// scored is a candidate paired with the composed score it will be
// ranked and clustered by.
type scored struct {
	unit  storage.MemoryUnit
	score float64
}

// Weights are the score-composition coefficients from §4.6 step 6:
// "final score = α·rerank + β·type_bonus + γ·recency + δ·length".
type Weights struct {
	Rerank, TypeBonus, Recency, Length float64
}

func DefaultWeights() Weights {
	return Weights{Rerank: 0.6, TypeBonus: 0.15, Recency: 0.15, Length: 0.1}
}

func typeBonus(ft storage.FactType) float64 {
	switch ft {
	case storage.FactObservation:
		return 1.0
	case storage.FactExperience:
		return 0.66
	case storage.FactWorld:
		return 0.33
	default: // opinion
		return 0.0
	}
}

func lengthBonus(text string) float64 {
	return math.Min(0.1, math.Log1p(float64(len(text)))/70)
}

// recencyScore decays linearly over one year with a floor of 0.05, per
// §4.6 step 6.
func recencyScore(unit storage.MemoryUnit, now time.Time) float64 {
	dt := bestdate.Best(bestdate.Fact{
		OccurredStart: unit.OccurredStart,
		OccurredEnd:   unit.OccurredEnd,
		MentionedAt:   unit.MentionedAt,
	})
	if dt == nil {
		return 0.05
	}
	daysAgo := now.Sub(*dt).Hours() / 24
	if daysAgo < 0 {
		daysAgo = 0
	}
	recency := 1.0 - daysAgo/365.0
	if recency < 0.05 {
		return 0.05
	}
	return recency
}

// composeScore applies §4.6 step 6's weighted sum.
func composeScore(rerank, bonus, recency, length float64, w Weights) float64 {
	return w.Rerank*rerank + w.TypeBonus*bonus + w.Recency*recency + w.Length*length
}

// clusterAndSelect builds a KNN graph over candidate embeddings at
// similarity threshold tau, computes connected components, and picks
// one representative per component — the candidate with the highest
// composed score — per §4.6 step 7. Grounded on original_source's
// diversity.py BFS connected-components routine, adapted to work over
// the already-composed score instead of recomputing bonuses inline.
func clusterAndSelect(candidates []scored, tau float64) []scored {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	adjacency := make([][]bool, n)
	for i := range adjacency {
		adjacency[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := cosine(candidates[i].unit.Embedding, candidates[j].unit.Embedding)
			adjacency[i][j] = sim >= tau
			adjacency[j][i] = adjacency[i][j]
		}
	}

	visited := make([]bool, n)
	var representatives []scored
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		queue := []int{start}
		visited[start] = true
		bestIdx := -1
		bestScore := math.Inf(-1)
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			if candidates[node].score > bestScore {
				bestScore = candidates[node].score
				bestIdx = node
			}
			for next := 0; next < n; next++ {
				if !visited[next] && adjacency[node][next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		representatives = append(representatives, candidates[bestIdx])
	}
	return representatives
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
