// Package bestdate implements the single temporal-priority rule (§3)
// shared by the storage layer's temporal candidate pool, the
// deduplication window check, and the diversity clusterer's recency
// score. There is exactly one priority chain in this system:
//
//  1. mentioned_at, if non-null (user-provided, always authoritative)
//  2. midpoint(occurred_start, occurred_end), if both non-null
//  3. occurred_start alone
//  4. occurred_end alone
//  5. null
package bestdate

import "time"

// Fact is the minimal shape bestdate needs from a memory unit.
type Fact struct {
	OccurredStart *time.Time
	OccurredEnd   *time.Time
	MentionedAt   *time.Time
}

// Best returns the best-date per the priority chain above, or nil if
// none of the source fields are set.
func Best(f Fact) *time.Time {
	if f.MentionedAt != nil {
		return f.MentionedAt
	}
	if f.OccurredStart != nil && f.OccurredEnd != nil {
		mid := f.OccurredStart.Add(f.OccurredEnd.Sub(*f.OccurredStart) / 2)
		return &mid
	}
	if f.OccurredStart != nil {
		return f.OccurredStart
	}
	if f.OccurredEnd != nil {
		return f.OccurredEnd
	}
	return nil
}
