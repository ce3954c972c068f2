// Package llm defines the LLM client contract (§6):
// call(messages, response_schema, scope, max_retries, timeout) ->
// parsed_object, plus a verify probe, a process-wide concurrency
// semaphore, and retry/backoff around transient failures. Transport,
// provider failover, and retry wrappers are otherwise out of scope
// per spec — this package specifies only the contract boundary and two
// concrete implementations, one Anthropic-backed and one Ollama-backed.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Message is one chat turn.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// CallOptions configures one Call invocation.
type CallOptions struct {
	Scope      string // rate-limiter scope key and logging/tracing attribution
	MaxRetries int
	TimeoutSec int
}

// Client is the LLM contract every engine component codes against.
type Client interface {
	// Call sends messages and returns a schema-validated JSON object.
	// On schema violation after retries it returns ErrOutputTooLong
	// (splittable by the caller) or a wrapped ErrLLMFailed (not
	// splittable).
	Call(ctx context.Context, messages []Message, schema json.RawMessage, opts CallOptions) (json.RawMessage, error)
	// Verify probes provider availability with one minimal real call.
	Verify(ctx context.Context) error
}

// Error taxonomy per §7: LLM transient errors are retried internally;
// a final failure surfaces as one of these two typed errors so the
// caller (fact extractor, consolidation engine) can tell a splittable
// failure from a non-splittable one.
var (
	ErrOutputTooLong = errors.New("llm: output exceeds schema length constraints")
	ErrLLMFailed     = errors.New("llm: call failed after retries")
)
