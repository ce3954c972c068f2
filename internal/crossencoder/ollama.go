package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OllamaScorer calls a generation endpoint prompted to return a single
// relevance score, grounded on the teacher's internal/ai/ollama.go
// Generate() HTTP shape. Real cross-encoder models (e.g. served behind
// a dedicated reranking endpoint) would implement the same Scorer
// interface with a purpose-built wire format; this implementation
// keeps the teacher's generic-HTTP-client pattern for environments
// that only have a chat/generate endpoint available.
type OllamaScorer struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllamaScorer(baseURL, model string) *OllamaScorer {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaScorer{baseURL: baseURL, model: model, httpClient: &http.Client{Timeout: 30 * time.Second}}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (s *OllamaScorer) Predict(ctx context.Context, pairs []Pair) ([]float64, error) {
	scores := make([]float64, len(pairs))
	for i, pair := range pairs {
		score, err := s.scoreOne(ctx, pair)
		if err != nil {
			return nil, fmt.Errorf("failed to score pair %d: %w", i, err)
		}
		scores[i] = score
	}
	return scores, nil
}

func (s *OllamaScorer) scoreOne(ctx context.Context, pair Pair) (float64, error) {
	prompt := fmt.Sprintf(
		"Rate the relevance of this document to the query on a scale from 0.0 to 1.0. Respond with only the number.\nQuery: %s\nDocument: %s\nScore:",
		pair.Query, pair.Doc,
	)
	body, err := json.Marshal(generateRequest{Model: s.model, Prompt: prompt, Stream: false})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode generate response: %w", err)
	}
	return parseScore(out.Response), nil
}

func parseScore(s string) float64 {
	var f float64
	_, err := fmt.Sscanf(trimToFirstToken(s), "%f", &f)
	if err != nil {
		return 0
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func trimToFirstToken(s string) string {
	for i, r := range s {
		if r == '\n' || r == ' ' {
			if i == 0 {
				continue
			}
			return s[:i]
		}
	}
	return s
}
