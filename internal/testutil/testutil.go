// Package testutil provides shared test fixtures for the engine's
// package tests: an initialized storage.Database plus fake
// embedding/cross-encoder/LLM collaborators, alongside small
// assertion helpers in the teacher's style.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hindsight-run/hindsight/internal/crossencoder"
	"github.com/hindsight-run/hindsight/internal/embedding"
	"github.com/hindsight-run/hindsight/internal/llm"
	"github.com/hindsight-run/hindsight/internal/storage"
)

// NewStorage opens a pure-Go in-memory SQLite database with the full
// engine schema applied, torn down automatically when the test ends.
func NewStorage(t *testing.T) *storage.Database {
	t.Helper()

	db, err := storage.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test storage: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewEmbedder returns a deterministic fake embedding provider for tests
// that don't need a real model.
func NewEmbedder(dim int) embedding.Provider {
	return embedding.NewFake(dim)
}

// NewScorer returns a deterministic fake cross-encoder for tests.
func NewScorer() crossencoder.Scorer {
	return crossencoder.NewFake()
}

// NewLLM returns a scripted fake LLM client for tests.
func NewLLM() *llm.Fake {
	return llm.NewFake()
}

// TempDir creates a temporary directory for testing, cleaned up
// automatically.
func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// TempFile creates a temporary file with the given content.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	return path
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

// AssertEqual fails the test if got != want.
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()

	if got != want {
		t.Errorf("Got %v, want %v", got, want)
	}
}

// AssertStringContains fails the test if str doesn't contain substr.
func AssertStringContains(t *testing.T, str, substr string) {
	t.Helper()

	if !containsString(str, substr) {
		t.Errorf("String %q does not contain %q", str, substr)
	}
}

func containsString(str, substr string) bool {
	return len(str) >= len(substr) && (str == substr || findSubstring(str, substr))
}

func findSubstring(str, substr string) bool {
	for i := 0; i <= len(str)-len(substr); i++ {
		if str[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
