// Package tagmatch implements the four tag-scoping filter modes
// (§4.4) shared by storage candidate queries, consolidation recall,
// and user-facing hybrid retrieval.
package tagmatch

// Mode is a tag filter mode.
type Mode string

const (
	Any       Mode = "any"
	All       Mode = "all"
	AnyStrict Mode = "any_strict"
	AllStrict Mode = "all_strict"
)

// Match reports whether a row with the given tags satisfies a query
// under the given mode, per §4.4's exact rules:
//
//	any:        row ∩ query ≠ ∅  OR  row = ∅  OR  query = ∅
//	all:        query ⊆ row  OR  row = ∅
//	any_strict: row ∩ query ≠ ∅  only (globals excluded)
//	all_strict: query ⊆ row  only (globals excluded)
//
// Per §9's Open Question resolution: an empty query always matches all
// rows under `any`; under `any_strict` an empty query matches only
// empty-tag (global) rows.
func Match(rowTags, queryTags []string, mode Mode) bool {
	rowSet := toSet(rowTags)
	querySet := toSet(queryTags)

	switch mode {
	case Any:
		if len(rowSet) == 0 || len(querySet) == 0 {
			return true
		}
		return intersects(rowSet, querySet)
	case All:
		if len(rowSet) == 0 {
			return true
		}
		return subset(querySet, rowSet)
	case AnyStrict:
		if len(querySet) == 0 {
			return len(rowSet) == 0
		}
		return intersects(rowSet, querySet)
	case AllStrict:
		return subset(querySet, rowSet)
	default:
		return false
	}
}

func toSet(tags []string) map[string]struct{} {
	s := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t != "" {
			s[t] = struct{}{}
		}
	}
	return s
}

func intersects(a, b map[string]struct{}) bool {
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for k := range small {
		if _, ok := big[k]; ok {
			return true
		}
	}
	return false
}

func subset(sub, super map[string]struct{}) bool {
	for k := range sub {
		if _, ok := super[k]; !ok {
			return false
		}
	}
	return true
}

// Union returns the sorted, deduplicated union of several tag sets —
// used to compute an observation's tags from its source facts, per the
// invariant that an observation's tag set is always the union of its
// contributors' tag sets.
func Union(tagSets ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, tags := range tagSets {
		for _, t := range tags {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return sortStrings(out)
}

// CanonicalKey returns the sorted, comma-joined canonical form of a tag
// set, used as the grouping key for consolidation's tag-set batching
// (§4.5.1 step 2) — two memories with different canonical keys never
// share an LLM batch.
func CanonicalKey(tags []string) string {
	sorted := sortStrings(append([]string(nil), tags...))
	out := ""
	for i, t := range sorted {
		if i > 0 {
			out += ","
		}
		out += t
	}
	return out
}

func sortStrings(s []string) []string {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
	return s
}
