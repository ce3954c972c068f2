package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hindsight-run/hindsight/internal/storage"
)

// TestOperationLifecycleTransitions exercises the full set of terminal
// states a tracked operation can land in, table-driven rather than one
// test function per status as operation_test.go does.
func TestOperationLifecycleTransitions(t *testing.T) {
	cases := []struct {
		name       string
		apply      func(t *testing.T, tr *Tracker, opID string)
		wantStatus storage.OperationStatus
		wantError  bool
	}{
		{
			name: "complete",
			apply: func(t *testing.T, tr *Tracker, opID string) {
				require.NoError(t, tr.Complete(opID, map[string]any{"items_count": float64(1)}))
			},
			wantStatus: storage.StatusCompleted,
		},
		{
			name: "fail",
			apply: func(t *testing.T, tr *Tracker, opID string) {
				require.NoError(t, tr.Fail(opID, errBoom))
			},
			wantStatus: storage.StatusFailed,
			wantError:  true,
		},
		{
			name: "cancel",
			apply: func(t *testing.T, tr *Tracker, opID string) {
				require.NoError(t, tr.Cancel(opID))
			},
			wantStatus: storage.StatusCancelled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := openTestStore(t)
			_, err := db.EnsureBank("bank-1", "bank-1")
			require.NoError(t, err)

			tr := NewTracker(db)
			opID, err := tr.Start("bank-1", storage.OpRetain)
			require.NoError(t, err)

			tc.apply(t, tr, opID)

			op, err := db.GetOperation(opID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, op.Status)
			if tc.wantError {
				require.NotNil(t, op.Error)
				assert.Equal(t, errBoom.Error(), *op.Error)
			} else {
				assert.Nil(t, op.Error)
			}
		})
	}
}

// TestStartChildRecordsBankAndParent checks a child operation is stored
// with the bank id passed to StartChild and with its parent's id.
func TestStartChildRecordsBankAndParent(t *testing.T) {
	db := openTestStore(t)
	_, err := db.EnsureBank("bank-1", "bank-1")
	require.NoError(t, err)

	tr := NewTracker(db)
	parentID, err := tr.Start("bank-1", storage.OpBatchRetainParent)
	require.NoError(t, err)

	childID, err := tr.StartChild("bank-1", parentID, storage.OpBatchRetainChild)
	require.NoError(t, err)

	child, err := db.GetOperation(childID)
	require.NoError(t, err)
	assert.Equal(t, "bank-1", child.BankID)
	require.NotNil(t, child.ParentOperationID)
	assert.Equal(t, parentID, *child.ParentOperationID)
}
