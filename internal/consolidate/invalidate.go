package consolidate

import (
	"fmt"

	"github.com/hindsight-run/hindsight/internal/storage"
)

// Invalidate runs the observation invalidation cascade (§4.5.4) for a
// memory that has already been deleted: every observation that cited
// it is deleted, and every other memory cited by one of those deleted
// observations is reset to unconsolidated so the next consolidation
// run re-synthesizes it.
func (e *Engine) Invalidate(memoryID string) error {
	return e.invalidate(memoryID, false)
}

// ClearObservationsForMemory runs the same cascade as Invalidate plus
// resets memoryID itself to unconsolidated (§4.5.4 step 4), for
// callers that want to force a memory back through consolidation
// without deleting it.
func (e *Engine) ClearObservationsForMemory(memoryID string) error {
	return e.invalidate(memoryID, true)
}

func (e *Engine) invalidate(memoryID string, resetSelf bool) error {
	obsIDs, err := e.Store.ObservationsCiting(memoryID)
	if err != nil {
		return fmt.Errorf("find citing observations: %w", err)
	}

	reset := map[string]bool{}
	if resetSelf {
		reset[memoryID] = true
	}

	for _, obsID := range obsIDs {
		obs, err := e.Store.GetMemory(obsID)
		if err != nil {
			log.Warn("invalidation: observation vanished before cascade", "observation_id", obsID, "error", err)
			continue
		}
		for _, sourceID := range obs.SourceMemoryIDs {
			if sourceID != memoryID {
				reset[sourceID] = true
			}
		}
		if err := e.Store.DeleteMemory(obsID); err != nil {
			return fmt.Errorf("delete invalidated observation %s: %w", obsID, err)
		}
	}

	for id := range reset {
		if err := e.Store.UpdateMemory(id, &storage.MemoryUpdate{ClearConsolidatedAt: true}); err != nil {
			log.Warn("invalidation: failed to reset consolidated_at", "memory_id", id, "error", err)
		}
	}
	return nil
}
