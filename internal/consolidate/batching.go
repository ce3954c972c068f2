package consolidate

import (
	"sort"

	"github.com/hindsight-run/hindsight/internal/storage"
	"github.com/hindsight-run/hindsight/internal/tagmatch"
)

// groupByTagSet groups units by their exact sorted tag set (§4.5.1
// step 2: "two memories with different tag sets never appear in the
// same LLM call — this is a security boundary, not an optimization").
// Group order is stable by first-appearance so processing still
// respects the oldest-first read order within each group.
func groupByTagSet(units []storage.MemoryUnit) []tagGroup {
	index := map[string]int{}
	var groups []tagGroup
	for _, u := range units {
		key := tagmatch.CanonicalKey(u.Tags)
		if i, ok := index[key]; ok {
			groups[i].Units = append(groups[i].Units, u)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, tagGroup{Tags: sortedCopy(u.Tags), Units: []storage.MemoryUnit{u}})
	}
	return groups
}

type tagGroup struct {
	Tags  []string
	Units []storage.MemoryUnit
}

func sortedCopy(tags []string) []string {
	out := append([]string(nil), tags...)
	sort.Strings(out)
	return out
}

// chunkBatches splits a tag group's units into fixed-size LLM batches
// (§4.5.1 step 3), preserving order.
func chunkBatches(units []storage.MemoryUnit, size int) [][]storage.MemoryUnit {
	if size <= 0 {
		size = len(units)
	}
	var out [][]storage.MemoryUnit
	for start := 0; start < len(units); start += size {
		end := start + size
		if end > len(units) {
			end = len(units)
		}
		out = append(out, units[start:end])
	}
	return out
}
