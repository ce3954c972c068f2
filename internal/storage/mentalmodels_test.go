package storage

import "testing"

func TestCreateAndListMentalModels(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}

	m := &MentalModel{
		BankID:      "bank-1",
		Name:        "project-status",
		SourceQuery: "what is the status of the project?",
		Content:     "",
		Tags:        []string{"work"},
		Trigger:     MentalModelTrigger{RefreshAfterConsolidation: true},
	}
	if err := db.CreateMentalModel(m); err != nil {
		t.Fatalf("CreateMentalModel: %v", err)
	}
	if m.ID == "" {
		t.Fatalf("expected generated ID")
	}

	models, err := db.ListMentalModels("bank-1")
	if err != nil {
		t.Fatalf("ListMentalModels: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(models))
	}
	got := models[0]
	if got.Name != "project-status" || !got.Trigger.RefreshAfterConsolidation {
		t.Fatalf("unexpected model: %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "work" {
		t.Fatalf("unexpected tags: %+v", got.Tags)
	}
}

func TestUpdateMentalModelContent(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	m := &MentalModel{BankID: "bank-1", Name: "n", SourceQuery: "q"}
	if err := db.CreateMentalModel(m); err != nil {
		t.Fatalf("CreateMentalModel: %v", err)
	}

	if err := db.UpdateMentalModelContent(m.ID, "synthesized content"); err != nil {
		t.Fatalf("UpdateMentalModelContent: %v", err)
	}

	models, err := db.ListMentalModels("bank-1")
	if err != nil {
		t.Fatalf("ListMentalModels: %v", err)
	}
	if models[0].Content != "synthesized content" {
		t.Fatalf("expected updated content, got %q", models[0].Content)
	}
}

func TestUpdateMentalModelContentNotFound(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpdateMentalModelContent("missing", "x"); err == nil {
		t.Fatalf("expected error for missing mental model")
	}
}
