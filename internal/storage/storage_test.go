package storage

import "testing"

// openTestDB opens a pure-Go in-memory database for package tests.
func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
