package operation

import (
	"context"

	"github.com/hindsight-run/hindsight/internal/retain"
	"github.com/hindsight-run/hindsight/internal/storage"
)

// BatchSizeThreshold is the item count above which BatchRetain splits
// a batch_retain request into child operations under a parent (§4.8).
// Chosen to match the consolidation engine's default read batch size
// (BatchSize, 40; its LLM batch size is 8) so one operation's
// sub-batches line up with one consolidation read.
const BatchSizeThreshold = 40

// BatchRetainResult mirrors one request's outcome within a batch.
type BatchRetainResult struct {
	Request retain.Request
	Units   []storage.MemoryUnit
	Err     error
}

// BatchRetain runs a list of retain requests as one tracked operation.
// Requests at or under BatchSizeThreshold run as a single flat
// "retain" operation; larger batches are split into child
// "batch_retain_child" operations under a "batch_retain_parent",
// recording result_metadata per §6. The worker checks for cooperative
// cancellation between sub-batches, never mid-sub-batch.
func (t *Tracker) BatchRetain(ctx context.Context, pipeline *retain.Pipeline, bankID string, requests []retain.Request) ([]BatchRetainResult, error) {
	if len(requests) <= BatchSizeThreshold {
		opID, err := t.Start(bankID, storage.OpRetain)
		if err != nil {
			return nil, err
		}
		results := runSubBatch(ctx, pipeline, requests)
		t.finish(opID, results, map[string]any{"items_count": len(requests)})
		return results, nil
	}

	subBatches := chunkRequests(requests, BatchSizeThreshold)
	totalTokens := estimateTotalTokens(requests)

	parentID, err := t.Start(bankID, storage.OpBatchRetainParent)
	if err != nil {
		return nil, err
	}

	var all []BatchRetainResult
	for i, batch := range subBatches {
		if err := checkCancelled(ctx, t, parentID); err != nil {
			_ = t.Cancel(parentID)
			return all, err
		}

		childID, err := t.StartChild(bankID, parentID, storage.OpBatchRetainChild)
		if err != nil {
			return all, err
		}
		results := runSubBatch(ctx, pipeline, batch)
		t.finish(childID, results, map[string]any{
			"items_count":         len(batch),
			"parent_operation_id": parentID,
			"sub_batch_index":     i,
			"total_sub_batches":   len(subBatches),
		})
		all = append(all, results...)
	}

	_ = t.Complete(parentID, map[string]any{
		"items_count":     len(requests),
		"total_tokens":    totalTokens,
		"num_sub_batches": len(subBatches),
		"is_parent":       true,
	})
	return all, nil
}

func runSubBatch(ctx context.Context, pipeline *retain.Pipeline, requests []retain.Request) []BatchRetainResult {
	out := make([]BatchRetainResult, len(requests))
	for i, req := range requests {
		units, err := pipeline.Retain(ctx, req)
		out[i] = BatchRetainResult{Request: req, Units: units, Err: err}
	}
	return out
}

func (t *Tracker) finish(operationID string, results []BatchRetainResult, metadata map[string]any) {
	for _, r := range results {
		if r.Err != nil {
			_ = t.Fail(operationID, r.Err)
			return
		}
	}
	_ = t.Complete(operationID, metadata)
}

func chunkRequests(requests []retain.Request, size int) [][]retain.Request {
	var out [][]retain.Request
	for start := 0; start < len(requests); start += size {
		end := start + size
		if end > len(requests) {
			end = len(requests)
		}
		out = append(out, requests[start:end])
	}
	return out
}

func estimateTotalTokens(requests []retain.Request) int {
	total := 0
	for _, r := range requests {
		total += len(r.Text) / 4
	}
	return total
}
