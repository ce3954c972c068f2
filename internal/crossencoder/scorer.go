// Package crossencoder defines the (query, doc) -> relevance score
// reranking contract used by the hybrid retrieval pipeline's rerank
// step (§4.6 step 5).
package crossencoder

import "context"

// Pair is one (query, document) comparison to score.
type Pair struct {
	Query string
	Doc   string
}

// Scorer is the cross-encoder contract.
type Scorer interface {
	Predict(ctx context.Context, pairs []Pair) ([]float64, error)
}
