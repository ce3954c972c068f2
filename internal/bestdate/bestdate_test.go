package bestdate

import (
	"testing"
	"time"
)

func TestBestDatePrioritizesMentionedAt(t *testing.T) {
	mentioned := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	occurred := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)

	got := Best(Fact{OccurredStart: &occurred, MentionedAt: &mentioned})
	if got == nil || !got.Equal(mentioned) {
		t.Fatalf("Best() = %v, want mentioned_at %v regardless of occurred_start", got, mentioned)
	}
}

func TestBestDateMidpoint(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	want := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	got := Best(Fact{OccurredStart: &start, OccurredEnd: &end})
	if got == nil || !got.Equal(want) {
		t.Fatalf("Best() = %v, want midpoint %v", got, want)
	}
}

func TestBestDateNilWhenNothingSet(t *testing.T) {
	if got := Best(Fact{}); got != nil {
		t.Fatalf("Best() = %v, want nil", got)
	}
}
