package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"

	"github.com/hindsight-run/hindsight/internal/logging"
	"github.com/hindsight-run/hindsight/internal/ratelimit"
)

var log = logging.GetLogger("llm")

// AnthropicClient implements Client against the Anthropic Messages
// API, grounded on the teacher's HTTP-client-wrapper shape and on
// steveyegge-beads' anthropic-sdk-go usage pattern, with retries moved
// from a hand-rolled backoff loop to cenkalti/backoff/v4 (per
// DESIGN.md's ambient-stack decision). The semaphore from
// original_source's module-level asyncio.Semaphore(32) is held by the
// caller (internal/extract, internal/consolidate), not by this type,
// so that one process-wide limiter can be shared across every LLM
// collaborator regardless of provider.
type AnthropicClient struct {
	client  anthropic.Client
	model   anthropic.Model
	limiter *ratelimit.Limiter
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicClient{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   anthropic.Model(model),
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}
}

// WithLimiter overrides the client's per-scope request-rate limiter
// (distinct from the Semaphore, which caps concurrency, not rate).
// Passing nil disables rate limiting entirely.
func (c *AnthropicClient) WithLimiter(l *ratelimit.Limiter) *AnthropicClient {
	c.limiter = l
	return c
}

// waitForRateLimit blocks until the named scope's token bucket has
// room, or ctx is cancelled. Rate limiting here is a distinct concern
// from llm.Semaphore: the semaphore bounds how many calls run at
// once, this bounds how many calls start per second per scope (e.g.
// "extract" vs "consolidate" can be throttled independently).
func (c *AnthropicClient) waitForRateLimit(ctx context.Context, scope string) error {
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

func (c *AnthropicClient) Verify(ctx context.Context) error {
	_, err := c.Call(ctx, []Message{{Role: "user", Content: "ping"}}, nil, CallOptions{MaxRetries: 1, TimeoutSec: 10})
	return err
}

func (c *AnthropicClient) Call(ctx context.Context, messages []Message, schema json.RawMessage, opts CallOptions) (json.RawMessage, error) {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}
	timeout := time.Duration(opts.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		Messages:  toAnthropicMessages(messages, schema),
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries))

	var raw json.RawMessage
	operation := func() error {
		if err := c.waitForRateLimit(ctx, opts.Scope); err != nil {
			return backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		msg, err := c.client.Messages.New(callCtx, params)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if !isRetryableAnthropicError(err) {
				return backoff.Permanent(fmt.Errorf("%w: %v", ErrLLMFailed, err))
			}
			return err // retryable
		}

		text, err := firstTextBlock(msg)
		if err != nil {
			return backoff.Permanent(err)
		}

		parsed, ok := extractJSON(text)
		if !ok {
			// The model produced prose instead of the requested JSON —
			// treat as an output-too-long-shaped failure only when the
			// response was truncated (no closing brace found); anything
			// else is a schema violation, not splittable.
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
		log.Error("llm call failed", "scope", opts.Scope, "error", err)
		return nil, err
	}
	return raw, nil
}

func toAnthropicMessages(messages []Message, schema json.RawMessage) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range messages {
		text := m.Content
		if m.Role == "system" && len(schema) > 0 {
			text += "\n\nRespond with a single JSON object matching this schema, and nothing else:\n" + string(schema)
		}
		switch m.Role {
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}
	return out
}

func firstTextBlock(msg *anthropic.Message) (string, error) {
	if msg == nil || len(msg.Content) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrLLMFailed)
	}
	block := msg.Content[0]
	if block.Type != "text" {
		return "", fmt.Errorf("%w: unexpected block type %s", ErrLLMFailed, block.Type)
	}
	return block.Text, nil
}

// extractJSON finds the first top-level {...} object in the response
// text, tolerating a model that wraps JSON in prose or code fences.
func extractJSON(text string) (json.RawMessage, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, false
	}
	candidate := text[start : end+1]
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, false
	}
	return json.RawMessage(candidate), true
}

func looksTruncated(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	last := trimmed[len(trimmed)-1]
	return last != '}' && last != ']'
}

// validateAgainstSchema performs a minimal structural check: every
// name listed in schema.required must be present as a key in the
// parsed object. Full JSON-schema validation (types, enums, nested
// constraints) is out of scope for this contract boundary — the
// typed-variant decode in internal/consolidate does the rest.
func validateAgainstSchema(data json.RawMessage, schema json.RawMessage) error {
	var schemaDoc struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &schemaDoc); err != nil {
		return nil // schema isn't a plain object schema; skip validation
	}
	if len(schemaDoc.Required) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}
	for _, field := range schemaDoc.Required {
		if _, ok := obj[field]; !ok {
			return fmt.Errorf("response missing required field %q", field)
		}
	}
	return nil
}

func isRetryableAnthropicError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return true
}
