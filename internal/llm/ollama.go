package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hindsight-run/hindsight/internal/ratelimit"
)

// OllamaClient calls an Ollama-compatible /api/chat endpoint, grounded
// on embedding.OllamaProvider's HTTP client shape (same base URL
// default, same request/response envelope conventions). It shares the
// schema-injection, tolerant-JSON-extraction, and minimal structural
// validation logic with AnthropicClient so both providers satisfy the
// same Client contract identically from the caller's point of view.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	return &OllamaClient{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}
}

func (c *OllamaClient) WithLimiter(l *ratelimit.Limiter) *OllamaClient {
	c.limiter = l
	return c
}

func (c *OllamaClient) waitForRateLimit(ctx context.Context, scope string) error {
	if c.limiter == nil {
		return nil
	}
	if scope == "" {
		scope = "default"
	}
	for {
		result := c.limiter.Allow(scope)
		if result.Allowed {
			return nil
		}
		select {
		case <-time.After(result.RetryAfter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *OllamaClient) Verify(ctx context.Context) error {
	_, err := c.Call(ctx, []Message{{Role: "user", Content: "ping"}}, nil, CallOptions{MaxRetries: 1, TimeoutSec: 10})
	return err
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Format   string              `json:"format,omitempty"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

func (c *OllamaClient) Call(ctx context.Context, messages []Message, schema json.RawMessage, opts CallOptions) (json.RawMessage, error) {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}
	timeout := time.Duration(opts.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	req := ollamaChatRequest{Model: c.model, Messages: toOllamaMessages(messages, schema)}
	if len(schema) > 0 {
		req.Format = "json"
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries))

	var raw json.RawMessage
	operation := func() error {
		if err := c.waitForRateLimit(ctx, opts.Scope); err != nil {
			return backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		text, err := c.chatOnce(callCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err // retryable: transport/HTTP-status errors
		}

		parsed, ok := extractJSON(text)
		if !ok {
			if looksTruncated(text) {
				return backoff.Permanent(ErrOutputTooLong)
			}
			return backoff.Permanent(fmt.Errorf("%w: response was not valid JSON", ErrLLMFailed))
		}
		if len(schema) > 0 {
			if err := validateAgainstSchema(parsed, schema); err != nil {
				return backoff.Permanent(fmt.Errorf("%w: %v", ErrLLMFailed, err))
			}
		}
		raw = parsed
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		log.Error("llm call failed", "scope", opts.Scope, "provider", "ollama", "error", err)
		return nil, err
	}
	return raw, nil
}

func (c *OllamaClient) chatOnce(ctx context.Context, chatReq ollamaChatRequest) (string, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama chat request returned status %d", resp.StatusCode)
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode ollama chat response: %w", err)
	}
	return out.Message.Content, nil
}

func toOllamaMessages(messages []Message, schema json.RawMessage) []ollamaChatMessage {
	out := make([]ollamaChatMessage, len(messages))
	for i, m := range messages {
		content := m.Content
		if m.Role == "system" && len(schema) > 0 {
			content += "\n\nRespond with a single JSON object matching this schema, and nothing else:\n" + string(schema)
		}
		out[i] = ollamaChatMessage{Role: m.Role, Content: content}
	}
	return out
}
