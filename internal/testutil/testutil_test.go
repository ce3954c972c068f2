package testutil

import (
	"os"
	"testing"
)

func TestNewStorage(t *testing.T) {
	db := NewStorage(t)

	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	if _, err := db.GetBank("bank-1"); err != nil {
		t.Fatalf("GetBank: %v", err)
	}
}

func TestNewEmbedder(t *testing.T) {
	emb := NewEmbedder(8)
	vecs, err := emb.Encode(nil, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 8 {
		t.Fatalf("unexpected embedding shape: %#v", vecs)
	}
}

func TestNewScorer(t *testing.T) {
	scorer := NewScorer()
	scores, err := scorer.Predict(nil, nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(scores) != 0 {
		t.Fatalf("expected no scores for empty input, got %v", scores)
	}
}

func TestNewLLM(t *testing.T) {
	fake := NewLLM()
	if err := fake.Verify(nil); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestTempDir(t *testing.T) {
	dir := TempDir(t)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Temp directory doesn't exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("Path is not a directory")
	}
}

func TestTempFile(t *testing.T) {
	content := []byte("test content")
	path := TempFile(t, "test.txt", content)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read temp file: %v", err)
	}

	if string(data) != string(content) {
		t.Errorf("Expected content %q, got %q", string(content), string(data))
	}
}

func TestAssertNoError(t *testing.T) {
	AssertNoError(t, nil)
}

func TestAssertEqual(t *testing.T) {
	AssertEqual(t, 1, 1)
	AssertEqual(t, "test", "test")
	AssertEqual(t, true, true)
}

func TestAssertStringContains(t *testing.T) {
	AssertStringContains(t, "hello world", "world")
	AssertStringContains(t, "hello world", "hello")
	AssertStringContains(t, "hello world", "o w")
}
