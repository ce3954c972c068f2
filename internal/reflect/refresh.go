package reflect

import (
	"context"
	"fmt"

	"github.com/hindsight-run/hindsight/internal/llm"
	"github.com/hindsight-run/hindsight/internal/recall"
	"github.com/hindsight-run/hindsight/internal/storage"
)

// RunPendingRefreshes drains every pending refresh_mental_model
// operation scheduled by consolidation's §4.5.3 trigger: it recalls
// against the model's own source_query, asks the LLM to resynthesize
// the model's content from what was recalled, and stores the result.
func (e *Engine) RunPendingRefreshes(ctx context.Context) (int, error) {
	ops, err := e.Store.ListPendingOperations(storage.OpRefreshMentalModel)
	if err != nil {
		return 0, fmt.Errorf("list pending refreshes: %w", err)
	}

	refreshed := 0
	for _, op := range ops {
		if err := e.runRefresh(ctx, op); err != nil {
			log.Warn("mental model refresh failed", "operation_id", op.OperationID, "error", err)
			msg := err.Error()
			_ = e.Store.UpdateOperationStatus(op.OperationID, storage.StatusFailed, nil, &msg)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func (e *Engine) runRefresh(ctx context.Context, op storage.AsyncOperation) error {
	if err := e.Store.UpdateOperationStatus(op.OperationID, storage.StatusRunning, nil, nil); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	mentalModelID, _ := op.ResultMetadata["mental_model_id"].(string)
	if mentalModelID == "" {
		return fmt.Errorf("operation %s missing mental_model_id", op.OperationID)
	}

	models, err := e.Store.ListMentalModels(op.BankID)
	if err != nil {
		return fmt.Errorf("list mental models: %w", err)
	}
	var model *storage.MentalModel
	for i := range models {
		if models[i].ID == mentalModelID {
			model = &models[i]
			break
		}
	}
	if model == nil {
		return fmt.Errorf("mental model %s not found", mentalModelID)
	}

	recallResp, err := e.Recall.Recall(ctx, recall.Query{
		BankID:    op.BankID,
		Text:      model.SourceQuery,
		Tags:      model.Tags,
		Budget:    recall.BudgetHigh,
		MaxTokens: 4000,
	})
	if err != nil {
		return fmt.Errorf("recall for refresh: %w", err)
	}

	if err := e.Sem.Acquire(ctx); err != nil {
		return err
	}
	defer e.Sem.Release()

	raw, err := e.Client.Call(ctx, buildRefreshMessages(model.SourceQuery, recallResp), []byte(defaultSchema), llm.CallOptions{
		Scope:      "reflect",
		MaxRetries: 3,
		TimeoutSec: 60,
	})
	if err != nil {
		return fmt.Errorf("refresh LLM call: %w", err)
	}
	text, err := extractText(raw)
	if err != nil {
		return fmt.Errorf("parse refresh response: %w", err)
	}

	if err := e.Store.UpdateMentalModelContent(model.ID, text); err != nil {
		return fmt.Errorf("store refreshed content: %w", err)
	}
	return e.Store.UpdateOperationStatus(op.OperationID, storage.StatusCompleted, map[string]any{"mental_model_id": mentalModelID}, nil)
}

func buildRefreshMessages(sourceQuery string, recalled *recall.Response) []llm.Message {
	var b []byte
	b = append(b, "Recalled memories:\n"...)
	if len(recalled.Results) == 0 {
		b = append(b, "(none)\n"...)
	}
	for _, r := range recalled.Results {
		b = append(b, fmt.Sprintf("- [%s] %s\n", r.Unit.FactType, r.Unit.Text)...)
	}
	b = append(b, fmt.Sprintf("\nSynthesize an up-to-date answer to: %s\n", sourceQuery)...)
	return []llm.Message{
		{Role: "system", Content: "Resynthesize this standing mental model's content from the recalled memories above."},
		{Role: "user", Content: string(b)},
	}
}
