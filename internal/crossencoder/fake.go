package crossencoder

import (
	"context"
	"strings"
)

// Fake is a deterministic token-overlap scorer used by tests, standing
// in for a trained cross-encoder model.
type Fake struct{}

func NewFake() *Fake { return &Fake{} }

func (Fake) Predict(_ context.Context, pairs []Pair) ([]float64, error) {
	scores := make([]float64, len(pairs))
	for i, p := range pairs {
		scores[i] = tokenOverlap(p.Query, p.Doc)
	}
	return scores, nil
}

func tokenOverlap(a, b string) float64 {
	aTokens := tokenSet(a)
	bTokens := tokenSet(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}
	var hits int
	for t := range aTokens {
		if bTokens[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(aTokens))
}

func tokenSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		out[tok] = true
	}
	return out
}
