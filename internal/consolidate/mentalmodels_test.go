package consolidate

import (
	"testing"

	"github.com/hindsight-run/hindsight/internal/storage"
)

func TestMentalModelDueUntaggedModelAlwaysRefreshes(t *testing.T) {
	m := storage.MentalModel{Tags: nil}
	if !mentalModelDue(m, map[string]bool{"work": true}, false) {
		t.Fatalf("expected untagged model to be due")
	}
	if !mentalModelDue(m, map[string]bool{}, true) {
		t.Fatalf("expected untagged model to be due even when run was untagged-only")
	}
}

func TestMentalModelDueTaggedModelNeedsOverlap(t *testing.T) {
	m := storage.MentalModel{Tags: []string{"work", "project-x"}}
	if !mentalModelDue(m, map[string]bool{"project-x": true}, false) {
		t.Fatalf("expected overlap to trigger refresh")
	}
	if mentalModelDue(m, map[string]bool{"unrelated": true}, false) {
		t.Fatalf("expected no overlap to skip refresh")
	}
}

func TestMentalModelDueSkipsTaggedModelWhenRunWasUntaggedOnly(t *testing.T) {
	m := storage.MentalModel{Tags: []string{"work"}}
	if mentalModelDue(m, map[string]bool{}, true) {
		t.Fatalf("expected tagged model to be skipped when run only touched untagged memories")
	}
}

func TestRefreshMentalModelsSchedulesDueModels(t *testing.T) {
	db := openTestStore(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	due := &storage.MentalModel{BankID: "bank-1", Name: "due", Tags: []string{"work"}, Trigger: storage.MentalModelTrigger{RefreshAfterConsolidation: true}}
	notDue := &storage.MentalModel{BankID: "bank-1", Name: "not-due", Tags: []string{"other"}, Trigger: storage.MentalModelTrigger{RefreshAfterConsolidation: true}}
	noTrigger := &storage.MentalModel{BankID: "bank-1", Name: "no-trigger", Tags: []string{"work"}}
	for _, m := range []*storage.MentalModel{due, notDue, noTrigger} {
		if err := db.CreateMentalModel(m); err != nil {
			t.Fatalf("CreateMentalModel: %v", err)
		}
	}

	e := &Engine{Store: db}
	if err := e.refreshMentalModels("bank-1", []string{"work"}, false); err != nil {
		t.Fatalf("refreshMentalModels: %v", err)
	}

	row := db.QueryRow(`SELECT COUNT(*) FROM async_operations WHERE kind = 'refresh_mental_model'`)
	var count int
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count scan: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 scheduled refresh, got %d", count)
	}
}
