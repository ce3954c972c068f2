package storage

import "testing"

func TestCreateAndListActiveDirectives(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}

	low := &Directive{BankID: "bank-1", Name: "low", Content: "be concise", Priority: 1, IsActive: true}
	high := &Directive{BankID: "bank-1", Name: "high", Content: "always cite sources", Priority: 10, IsActive: true}
	inactive := &Directive{BankID: "bank-1", Name: "off", Content: "ignored", Priority: 99, IsActive: false}
	for _, dir := range []*Directive{low, high, inactive} {
		if err := db.CreateDirective(dir); err != nil {
			t.Fatalf("CreateDirective: %v", err)
		}
	}

	got, err := db.ListActiveDirectives("bank-1")
	if err != nil {
		t.Fatalf("ListActiveDirectives: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 active directives, got %d", len(got))
	}
	if got[0].Name != "high" {
		t.Fatalf("expected highest priority first, got %q", got[0].Name)
	}
}

func TestSetDirectiveActive(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.EnsureBank("bank-1", "bank-1"); err != nil {
		t.Fatalf("EnsureBank: %v", err)
	}
	dir := &Directive{BankID: "bank-1", Name: "n", Content: "c", IsActive: true}
	if err := db.CreateDirective(dir); err != nil {
		t.Fatalf("CreateDirective: %v", err)
	}

	if err := db.SetDirectiveActive(dir.ID, false); err != nil {
		t.Fatalf("SetDirectiveActive: %v", err)
	}
	got, err := db.ListActiveDirectives("bank-1")
	if err != nil {
		t.Fatalf("ListActiveDirectives: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 active directives after deactivation, got %d", len(got))
	}
}

func TestSetDirectiveActiveNotFound(t *testing.T) {
	db := openTestDB(t)
	if err := db.SetDirectiveActive("missing", true); err == nil {
		t.Fatalf("expected error for missing directive")
	}
}
