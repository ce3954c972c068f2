package storage

import "testing"

func TestCreateAndGetOperation(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}

	op := &AsyncOperation{
		BankID: "bank-1",
		Kind:   OpRetain,
		ResultMetadata: map[string]any{
			"items_count": float64(3),
		},
	}
	if err := db.CreateOperation(op); err != nil {
		t.Fatalf("CreateOperation: %v", err)
	}
	if op.OperationID == "" {
		t.Fatalf("expected generated operation ID")
	}

	got, err := db.GetOperation(op.OperationID)
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", got.Status)
	}
	if got.ResultMetadata["items_count"] != float64(3) {
		t.Fatalf("unexpected result_metadata: %+v", got.ResultMetadata)
	}
}

func TestUpdateOperationStatus(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	op := &AsyncOperation{BankID: "bank-1", Kind: OpConsolidate}
	if err := db.CreateOperation(op); err != nil {
		t.Fatalf("CreateOperation: %v", err)
	}

	if err := db.UpdateOperationStatus(op.OperationID, StatusRunning, nil, nil); err != nil {
		t.Fatalf("UpdateOperationStatus running: %v", err)
	}
	running, err := db.GetOperation(op.OperationID)
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if running.Status != StatusRunning || running.StartedAt == nil {
		t.Fatalf("expected running status with started_at, got %+v", running)
	}

	if err := db.UpdateOperationStatus(op.OperationID, StatusCompleted, map[string]any{"ok": true}, nil); err != nil {
		t.Fatalf("UpdateOperationStatus completed: %v", err)
	}
	done, err := db.GetOperation(op.OperationID)
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if done.Status != StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("expected completed status with completed_at, got %+v", done)
	}
	if done.ResultMetadata["ok"] != true {
		t.Fatalf("unexpected result_metadata: %+v", done.ResultMetadata)
	}
}

func TestListChildOperations(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	parent := &AsyncOperation{BankID: "bank-1", Kind: OpBatchRetainParent}
	if err := db.CreateOperation(parent); err != nil {
		t.Fatalf("CreateOperation parent: %v", err)
	}
	child := &AsyncOperation{BankID: "bank-1", Kind: OpBatchRetainChild, ParentOperationID: &parent.OperationID}
	if err := db.CreateOperation(child); err != nil {
		t.Fatalf("CreateOperation child: %v", err)
	}

	children, err := db.ListChildOperations(parent.OperationID)
	if err != nil {
		t.Fatalf("ListChildOperations: %v", err)
	}
	if len(children) != 1 || children[0].OperationID != child.OperationID {
		t.Fatalf("unexpected children: %+v", children)
	}
}

func TestUpdateOperationStatusNotFound(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpdateOperationStatus("missing", StatusRunning, nil, nil); err == nil {
		t.Fatalf("expected error for missing operation")
	}
}
