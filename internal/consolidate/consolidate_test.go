package consolidate

import (
	"context"
	"testing"

	"github.com/hindsight-run/hindsight/internal/recall"
	"github.com/hindsight-run/hindsight/internal/storage"
)

// openTestStore opens a pure-Go in-memory database for package tests.
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

// fakeRecaller returns a fixed set of observations for every recall
// call, regardless of query, so tests can control exactly which
// observations each fact is "authorized" to see.
type fakeRecaller struct {
	units []storage.MemoryUnit
}

func (f *fakeRecaller) Recall(_ context.Context, _ recall.Query) (*recall.Response, error) {
	results := make([]recall.Result, len(f.units))
	for i, u := range f.units {
		results[i] = recall.Result{Unit: u, Score: 1.0}
	}
	return &recall.Response{Results: results}, nil
}
