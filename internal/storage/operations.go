package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateOperation inserts a new async operation in the pending state
// (§6: every retain/consolidate/refresh job is tracked this way).
func (d *Database) CreateOperation(op *AsyncOperation) error {
	if op.OperationID == "" {
		op.OperationID = uuid.New().String()
	}
	if op.Status == "" {
		op.Status = StatusPending
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	meta, err := marshalMetadata(op.ResultMetadata)
	if err != nil {
		return fmt.Errorf("marshal result_metadata: %w", err)
	}

	_, err = d.Exec(`
		INSERT INTO async_operations (id, bank_id, kind, status, created_at, started_at, completed_at, result_metadata, error, parent_operation_id)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		op.OperationID, op.BankID, string(op.Kind), string(op.Status), op.CreatedAt,
		nullTime(op.StartedAt), nullTime(op.CompletedAt), meta, nullString(op.Error), nullString(op.ParentOperationID),
	)
	return err
}

// GetOperation fetches a single tracked operation by id.
func (d *Database) GetOperation(id string) (*AsyncOperation, error) {
	row := d.QueryRow(`SELECT id, bank_id, kind, status, created_at, started_at, completed_at, result_metadata, error, parent_operation_id FROM async_operations WHERE id = ?`, id)
	op, err := scanOperation(row.Scan)
	if err != nil {
		return nil, err
	}
	return op, nil
}

// ListChildOperations returns every operation whose parent_operation_id
// is parentID (a batch-retain parent's sub-batches, §6).
func (d *Database) ListChildOperations(parentID string) ([]AsyncOperation, error) {
	rows, err := d.Query(`SELECT id, bank_id, kind, status, created_at, started_at, completed_at, result_metadata, error, parent_operation_id FROM async_operations WHERE parent_operation_id = ? ORDER BY created_at`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AsyncOperation
	for rows.Next() {
		op, err := scanOperation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *op)
	}
	return out, rows.Err()
}

// UpdateOperationStatus transitions an operation's status, stamping
// started_at/completed_at as appropriate and recording an error
// message or final result_metadata.
func (d *Database) UpdateOperationStatus(id string, status OperationStatus, resultMetadata map[string]any, opErr *string) error {
	now := time.Now().UTC()

	var startedAt, completedAt any
	switch status {
	case StatusRunning:
		startedAt = now
	case StatusCompleted, StatusFailed, StatusCancelled:
		completedAt = now
	}

	meta, err := marshalMetadata(resultMetadata)
	if err != nil {
		return fmt.Errorf("marshal result_metadata: %w", err)
	}

	query := `UPDATE async_operations SET status = ?`
	args := []any{string(status)}
	if startedAt != nil {
		query += `, started_at = ?`
		args = append(args, startedAt)
	}
	if completedAt != nil {
		query += `, completed_at = ?`
		args = append(args, completedAt)
	}
	if resultMetadata != nil {
		query += `, result_metadata = ?`
		args = append(args, meta)
	}
	if opErr != nil {
		query += `, error = ?`
		args = append(args, *opErr)
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := d.Exec(query, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: operation %s", ErrNotFound, id)
	}
	return nil
}

// ListPendingOperations returns every pending operation of the given
// kind across all banks, oldest first, for a worker to claim.
func (d *Database) ListPendingOperations(kind OperationKind) ([]AsyncOperation, error) {
	rows, err := d.Query(`SELECT id, bank_id, kind, status, created_at, started_at, completed_at, result_metadata, error, parent_operation_id FROM async_operations WHERE kind = ? AND status = 'pending' ORDER BY created_at`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AsyncOperation
	for rows.Next() {
		op, err := scanOperation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *op)
	}
	return out, rows.Err()
}

func scanOperation(scan func(dest ...any) error) (*AsyncOperation, error) {
	var op AsyncOperation
	var kind, status, meta string
	var errStr *string
	var parentID *string
	if err := scan(&op.OperationID, &op.BankID, &kind, &status, &op.CreatedAt, &op.StartedAt, &op.CompletedAt, &meta, &errStr, &parentID); err != nil {
		return nil, err
	}
	op.Kind = OperationKind(kind)
	op.Status = OperationStatus(status)
	op.Error = errStr
	op.ParentOperationID = parentID
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &op.ResultMetadata); err != nil {
			return nil, fmt.Errorf("unmarshal result_metadata: %w", err)
		}
	}
	return &op, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
