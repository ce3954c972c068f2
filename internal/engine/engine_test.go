package engine

import (
	"testing"

	"github.com/hindsight-run/hindsight/internal/config"
	"github.com/hindsight-run/hindsight/internal/testutil"
)

func fakeConfig() config.Config {
	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = ":memory:"
	cfg.Embedding.Provider = "fake"
	cfg.Embedding.Dimension = 8
	cfg.CrossEncoder.Provider = "fake"
	cfg.LLM.Provider = "fake"
	return cfg
}

func TestNewWiresEveryCollaborator(t *testing.T) {
	e, err := New(fakeConfig())
	testutil.AssertNoError(t, err)
	defer e.Store.Close()

	if e.Retain == nil || e.Recall == nil || e.Reflect == nil || e.Consolidate == nil || e.Operations == nil {
		t.Fatalf("expected every collaborator to be non-nil, got %+v", e)
	}
	testutil.AssertEqual(t, e.Config.Embedding.Provider, "fake")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := fakeConfig()
	cfg.Database.Driver = "postgres"

	_, err := New(cfg)
	testutil.AssertError(t, err)
}

func TestNewUnknownEmbeddingProviderFails(t *testing.T) {
	cfg := fakeConfig()
	cfg.Embedding.Provider = "made-up"

	_, err := New(cfg)
	testutil.AssertError(t, err)
}
