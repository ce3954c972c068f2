// Package operation tracks asynchronous jobs (retain, consolidation,
// mental-model refresh) as rows in the storage layer, following §4.8:
// pending -> running -> {completed | failed | cancelled}, with
// cooperative cancellation checked at batch boundaries and parent/
// child batch-splitting for oversized retain requests.
package operation

import (
	"context"
	"fmt"

	"github.com/hindsight-run/hindsight/internal/storage"
)

// Tracker wraps the storage layer's async_operations CRUD with the
// lifecycle transitions every job runner uses.
type Tracker struct {
	Store *storage.Database
}

func NewTracker(store *storage.Database) *Tracker {
	return &Tracker{Store: store}
}

// Start creates a pending operation and immediately marks it running,
// returning its ID.
func (t *Tracker) Start(bankID string, kind storage.OperationKind) (string, error) {
	op := &storage.AsyncOperation{BankID: bankID, Kind: kind, Status: storage.StatusPending}
	if err := t.Store.CreateOperation(op); err != nil {
		return "", fmt.Errorf("create operation: %w", err)
	}
	if err := t.Store.UpdateOperationStatus(op.OperationID, storage.StatusRunning, nil, nil); err != nil {
		return "", fmt.Errorf("mark operation running: %w", err)
	}
	return op.OperationID, nil
}

// Complete marks an operation completed with its final result_metadata.
func (t *Tracker) Complete(operationID string, resultMetadata map[string]any) error {
	return t.Store.UpdateOperationStatus(operationID, storage.StatusCompleted, resultMetadata, nil)
}

// Fail marks an operation failed, recording the error message.
func (t *Tracker) Fail(operationID string, cause error) error {
	msg := cause.Error()
	return t.Store.UpdateOperationStatus(operationID, storage.StatusFailed, nil, &msg)
}

// Cancel marks an operation cancelled. It does not interrupt a running
// worker directly — cancellation is cooperative, per §4.8: the worker
// itself must call IsCancelled at a batch boundary and stop.
func (t *Tracker) Cancel(operationID string) error {
	return t.Store.UpdateOperationStatus(operationID, storage.StatusCancelled, nil, nil)
}

// IsCancelled reports whether an operation has been marked cancelled,
// for a worker to check between batches.
func (t *Tracker) IsCancelled(operationID string) (bool, error) {
	op, err := t.Store.GetOperation(operationID)
	if err != nil {
		return false, err
	}
	return op.Status == storage.StatusCancelled, nil
}

// StartChild creates a running operation under a parent, for the
// batch_retain_parent/batch_retain_child split (§4.8, §6).
func (t *Tracker) StartChild(bankID, parentOperationID string, kind storage.OperationKind) (string, error) {
	op := &storage.AsyncOperation{
		BankID:            bankID,
		Kind:              kind,
		Status:            storage.StatusPending,
		ParentOperationID: &parentOperationID,
	}
	if err := t.Store.CreateOperation(op); err != nil {
		return "", fmt.Errorf("create child operation: %w", err)
	}
	if err := t.Store.UpdateOperationStatus(op.OperationID, storage.StatusRunning, nil, nil); err != nil {
		return "", fmt.Errorf("mark child operation running: %w", err)
	}
	return op.OperationID, nil
}

// checkCancelled is a small helper for worker loops that want to bail
// out of ctx.Err() and cooperative cancellation with one call.
func checkCancelled(ctx context.Context, t *Tracker, operationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cancelled, err := t.IsCancelled(operationID)
	if err != nil {
		return err
	}
	if cancelled {
		return fmt.Errorf("operation %s cancelled", operationID)
	}
	return nil
}
