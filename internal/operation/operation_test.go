package operation

import (
	"testing"

	"github.com/hindsight-run/hindsight/internal/storage"
)

func openTestStore(t *testing.T) *storage.Database {
	t.Helper()
	db, err := storage.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStartCompleteLifecycle(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	tr := NewTracker(db)

	opID, err := tr.Start("bank-1", storage.OpRetain)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	op, err := db.GetOperation(opID)
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if op.Status != storage.StatusRunning || op.StartedAt == nil {
		t.Fatalf("expected running operation with started_at, got %+v", op)
	}

	if err := tr.Complete(opID, map[string]any{"items_count": float64(2)}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	done, err := db.GetOperation(opID)
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if done.Status != storage.StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("expected completed operation, got %+v", done)
	}
}

func TestCancelAndIsCancelled(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	tr := NewTracker(db)
	opID, err := tr.Start("bank-1", storage.OpConsolidate)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	cancelled, err := tr.IsCancelled(opID)
	if err != nil {
		t.Fatalf("IsCancelled: %v", err)
	}
	if cancelled {
		t.Fatalf("expected not cancelled yet")
	}

	if err := tr.Cancel(opID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	cancelled, err = tr.IsCancelled(opID)
	if err != nil {
		t.Fatalf("IsCancelled: %v", err)
	}
	if !cancelled {
		t.Fatalf("expected cancelled after Cancel")
	}
}

func TestFailRecordsError(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	tr := NewTracker(db)
	opID, err := tr.Start("bank-1", storage.OpRetain)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := tr.Fail(opID, errBoom); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	op, err := db.GetOperation(opID)
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if op.Status != storage.StatusFailed || op.Error == nil || *op.Error != errBoom.Error() {
		t.Fatalf("expected failed operation with error message, got %+v", op)
	}
}

func TestStartChildLinksParent(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	tr := NewTracker(db)
	parentID, err := tr.Start("bank-1", storage.OpBatchRetainParent)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	childID, err := tr.StartChild("bank-1", parentID, storage.OpBatchRetainChild)
	if err != nil {
		t.Fatalf("StartChild: %v", err)
	}

	children, err := db.ListChildOperations(parentID)
	if err != nil {
		t.Fatalf("ListChildOperations: %v", err)
	}
	if len(children) != 1 || children[0].OperationID != childID {
		t.Fatalf("unexpected children: %+v", children)
	}
}

var errBoom = boomError("boom")

type boomError string

func (e boomError) Error() string { return string(e) }
