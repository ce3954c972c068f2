package consolidate

import (
	"fmt"

	"github.com/hindsight-run/hindsight/internal/storage"
)

// refreshMentalModels schedules a refresh job for every mental model
// whose trigger fires off this run (§4.5.3): a model with
// trigger.refresh_after_consolidation=true is due for refresh when its
// tags overlap the set of tags just consolidated, or when the model is
// untagged (global) and applies regardless of tag set, or when this
// run only touched untagged memories and the model is itself untagged.
func (e *Engine) refreshMentalModels(bankID string, processedTags []string, anyUntagged bool) error {
	models, err := e.Store.ListMentalModels(bankID)
	if err != nil {
		return fmt.Errorf("list mental models: %w", err)
	}

	processed := make(map[string]bool, len(processedTags))
	for _, t := range processedTags {
		processed[t] = true
	}

	for _, m := range models {
		if !m.Trigger.RefreshAfterConsolidation {
			continue
		}
		if !mentalModelDue(m, processed, anyUntagged) {
			continue
		}
		if err := e.scheduleRefresh(bankID, m.ID); err != nil {
			log.Warn("mental model refresh scheduling failed", "mental_model_id", m.ID, "error", err)
		}
	}
	return nil
}

// mentalModelDue decides whether a model's trigger condition is met by
// this consolidation run's tag footprint.
func mentalModelDue(m storage.MentalModel, processedTags map[string]bool, anyUntagged bool) bool {
	if len(m.Tags) == 0 {
		// An untagged model is global: it refreshes whenever anything
		// was consolidated, tagged or not.
		return true
	}
	if anyUntagged && len(processedTags) == 0 {
		// This run only touched untagged memories; a tagged model has
		// nothing new to refresh from.
		return false
	}
	for _, t := range m.Tags {
		if processedTags[t] {
			return true
		}
	}
	return false
}

func (e *Engine) scheduleRefresh(bankID, mentalModelID string) error {
	return e.Store.CreateOperation(&storage.AsyncOperation{
		BankID: bankID,
		Kind:   storage.OpRefreshMentalModel,
		Status: storage.StatusPending,
		ResultMetadata: map[string]any{
			"mental_model_id": mentalModelID,
		},
	})
}
