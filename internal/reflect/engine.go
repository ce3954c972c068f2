package reflect

import (
	"context"
	"fmt"

	"github.com/hindsight-run/hindsight/internal/llm"
	"github.com/hindsight-run/hindsight/internal/logging"
	"github.com/hindsight-run/hindsight/internal/recall"
	"github.com/hindsight-run/hindsight/internal/storage"
	"github.com/hindsight-run/hindsight/internal/tagmatch"
)

var log = logging.GetLogger("reflect")

const defaultSchema = `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string"}
  }
}`

// Engine runs reflection for one bank at a time.
type Engine struct {
	Store  *storage.Database
	Recall *recall.Engine
	Client llm.Client
	Sem    *llm.Semaphore
}

func NewEngine(store *storage.Database, recaller *recall.Engine, client llm.Client, sem *llm.Semaphore) *Engine {
	return &Engine{Store: store, Recall: recaller, Client: client, Sem: sem}
}

// Reflect runs a recall, gathers tag-scoped mental models and
// directives, and asks the LLM to synthesize an answer grounded in
// exactly what was recalled.
func (e *Engine) Reflect(ctx context.Context, q Query) (*Response, error) {
	recallResp, err := e.Recall.Recall(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("recall: %w", err)
	}

	models, err := e.matchingMentalModels(q)
	if err != nil {
		return nil, fmt.Errorf("list mental models: %w", err)
	}
	directives, err := e.matchingDirectives(q)
	if err != nil {
		return nil, fmt.Errorf("list directives: %w", err)
	}

	based := newBasedOn()
	for _, r := range recallResp.Results {
		based.Memories = append(based.Memories, r.Unit.ID)
	}
	for _, m := range models {
		based.MentalModels = append(based.MentalModels, m.ID)
	}
	for _, d := range directives {
		based.Directives = append(based.Directives, d.ID)
	}

	schema := q.Schema
	if len(schema) == 0 {
		schema = []byte(defaultSchema)
	}

	if err := e.Sem.Acquire(ctx); err != nil {
		return nil, err
	}
	defer e.Sem.Release()

	raw, err := e.Client.Call(ctx, buildMessages(q.Query.Text, recallResp, models, directives), schema, llm.CallOptions{
		Scope:      "reflect",
		MaxRetries: 3,
		TimeoutSec: 60,
	})
	if err != nil {
		return nil, fmt.Errorf("reflect LLM call: %w", err)
	}

	text, err := extractText(raw)
	if err != nil {
		log.Warn("reflect: falling back to raw LLM output", "error", err)
		text = string(raw)
	}

	return &Response{Text: text, BasedOn: based}, nil
}

func (e *Engine) matchingMentalModels(q Query) ([]storage.MentalModel, error) {
	all, err := e.Store.ListMentalModels(q.BankID)
	if err != nil {
		return nil, err
	}
	mode := q.TagsMatch
	if mode == "" {
		mode = tagmatch.Any
	}
	var out []storage.MentalModel
	for _, m := range all {
		if tagmatch.Match(m.Tags, q.Tags, mode) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (e *Engine) matchingDirectives(q Query) ([]storage.Directive, error) {
	all, err := e.Store.ListActiveDirectives(q.BankID)
	if err != nil {
		return nil, err
	}
	mode := q.TagsMatch
	if mode == "" {
		mode = tagmatch.Any
	}
	var out []storage.Directive
	for _, d := range all {
		if tagmatch.Match(d.Tags, q.Tags, mode) {
			out = append(out, d)
		}
	}
	return out, nil
}
