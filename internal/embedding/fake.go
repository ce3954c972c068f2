package embedding

import (
	"context"
	"hash/fnv"
)

// Fake is a deterministic, dependency-free Provider used by tests. It
// hashes each text into a pseudo-random vector of the declared
// dimension (components in [-1, 1), not normalized) so that cosine
// similarity is stable across runs without needing a real embedding
// model.
type Fake struct {
	dim int
}

// NewFake constructs a deterministic fake embedding provider.
func NewFake(dim int) *Fake { return &Fake{dim: dim} }

func (f *Fake) Dimension() int { return f.dim }

func (f *Fake) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectorFor(text)
	}
	return out, nil
}

func (f *Fake) vectorFor(text string) []float32 {
	v := make([]float32, f.dim)
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float32(int32(seed>>33)) / float32(1<<31)
	}
	return v
}
