package storage

import (
	"time"

	"github.com/hindsight-run/hindsight/internal/tagmatch"
)

// Filters narrows candidate queries by fact type, tag scope, and a
// hard date range, the common shape threaded through all three
// candidate pools in §4.6 step 3.
type Filters struct {
	BankID     string
	FactTypes  []FactType // empty = all types
	Tags       []string
	TagsMatch  tagmatch.Mode
	DateAfter  *time.Time
	DateBefore *time.Time
}

func (f Filters) factTypeSet() map[FactType]bool {
	if len(f.FactTypes) == 0 {
		return nil
	}
	m := make(map[FactType]bool, len(f.FactTypes))
	for _, t := range f.FactTypes {
		m[t] = true
	}
	return m
}

// passesFilters applies fact-type, tag, and date-range filtering to a
// single hydrated row — used after the SQL layer returns a
// bank/fact-type-scoped working set, since tag containment semantics
// (any/all/any_strict/all_strict) and the best-date chain aren't
// expressible as simple SQL predicates over the JSON tags column.
func passesFilters(unit MemoryUnit, f Filters) bool {
	if types := f.factTypeSet(); types != nil && !types[unit.FactType] {
		return false
	}
	mode := f.TagsMatch
	if mode == "" {
		mode = tagmatch.Any
	}
	if !tagmatch.Match(unit.Tags, f.Tags, mode) {
		return false
	}
	if f.DateAfter != nil && unit.EventDate.Before(*f.DateAfter) {
		return false
	}
	if f.DateBefore != nil && unit.EventDate.After(*f.DateBefore) {
		return false
	}
	return true
}
