package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OllamaProvider calls an Ollama-compatible /api/embeddings endpoint,
// grounded on the teacher's internal/ai/ollama.go HTTP client shape
// (same base URL default, same JSON request/response envelope), but
// validates the returned vector's dimension against a fixed value
// declared at construction per §4.1's "dimension fixed... immutable"
// rule (see original_source's embeddings.py which raises on mismatch).
type OllamaProvider struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
}

// NewOllamaProvider constructs a provider bound to a fixed dimension.
// The dimension is checked on every Encode call against each vector
// the model returns, in place of original_source's load-time
// dimension check.
func NewOllamaProvider(baseURL, model string, dimension int) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaProvider{
		baseURL:    baseURL,
		model:      model,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *OllamaProvider) Dimension() int { return p.dimension }

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Encode embeds each text independently (Ollama's embeddings endpoint
// is single-prompt), in order.
func (p *OllamaProvider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.encodeOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to encode text %d: %w", i, err)
		}
		if len(vec) != p.dimension {
			return nil, fmt.Errorf("embedding provider returned dimension %d, bank requires %d", len(vec), p.dimension)
		}
		out[i] = vec
	}
	return out, nil
}

func (p *OllamaProvider) encodeOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding request returned status %d", resp.StatusCode)
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	return out.Embedding, nil
}
