package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/hindsight-run/hindsight/internal/bestdate"
)

// Scored pairs a memory unit with a pool-specific score.
type Scored struct {
	Unit  MemoryUnit
	Score float64
}

// workingSet loads every memory row for a bank, used as the base set
// for the exact-scan dense/temporal pools and the find_similar window
// check. Acceptable at the scale implied by the budget tables
// (low/mid/high ≤ 200 candidates); see DESIGN.md's dense-index open
// question for the ANN-index follow-up.
func (d *Database) workingSet(bankID string) ([]MemoryUnit, error) {
	rows, err := d.Query(`SELECT `+memoryColumns+` FROM memory_units WHERE bank_id = ?`, bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to load working set: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// CandidatesByDense returns the top-k rows by cosine similarity to
// query_embedding (§4.1 candidates_by_dense).
func (d *Database) CandidatesByDense(queryEmbedding []float32, f Filters, k int) ([]Scored, error) {
	set, err := d.workingSet(f.BankID)
	if err != nil {
		return nil, err
	}
	var scored []Scored
	for _, unit := range set {
		if !passesFilters(unit, f) || len(unit.Embedding) == 0 {
			continue
		}
		scored = append(scored, Scored{Unit: unit, Score: cosineSimilarity(queryEmbedding, unit.Embedding)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return topK(scored, k), nil
}

// CandidatesByTemporal returns the top-k rows closest to anchorDate on
// the best-date chain (§4.1 candidates_by_temporal).
func (d *Database) CandidatesByTemporal(anchorDate time.Time, f Filters, k int) ([]Scored, error) {
	set, err := d.workingSet(f.BankID)
	if err != nil {
		return nil, err
	}
	var scored []Scored
	for _, unit := range set {
		if !passesFilters(unit, f) {
			continue
		}
		best := bestdate.Best(bestdate.Fact{OccurredStart: unit.OccurredStart, OccurredEnd: unit.OccurredEnd, MentionedAt: unit.MentionedAt})
		if best == nil {
			continue
		}
		delta := best.Sub(anchorDate)
		if delta < 0 {
			delta = -delta
		}
		// Closer dates score higher; normalize to (0,1].
		score := 1.0 / (1.0 + delta.Hours()/24.0)
		scored = append(scored, Scored{Unit: unit, Score: score})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return topK(scored, k), nil
}

// CandidatesBySparse returns the top-k rows by BM25 lexical score
// against the FTS5 index (§4.1 candidates_by_sparse). Falls back to an
// empty result set (not an error) if FTS5 is unavailable, matching the
// teacher's tolerance for FTS5-less SQLite builds.
func (d *Database) CandidatesBySparse(queryText string, f Filters, k int) ([]Scored, error) {
	if queryText == "" {
		return nil, nil
	}
	// The inner select keeps only memory_units' columns (m.*), so the
	// FTS table's own id/text columns never make memoryColumns ambiguous.
	rows, err := d.Query(`
		SELECT `+memoryColumns+`, rank FROM (
			SELECT m.*, bm25(memory_units_fts) AS rank
			FROM memory_units_fts
			JOIN memory_units m ON m.id = memory_units_fts.id
			WHERE memory_units_fts MATCH ? AND m.bank_id = ?
			ORDER BY rank LIMIT ?)`,
		escapeFTS5Query(queryText), f.BankID, k*4, // overfetch before Go-side filtering
	)
	if err != nil {
		return nil, nil // FTS5 unavailable; sparse pool degrades to empty
	}
	defer rows.Close()

	var scored []Scored
	for rows.Next() {
		unit, rank, err := scanMemoryWithRank(rows)
		if err != nil {
			return nil, err
		}
		if !passesFilters(*unit, f) {
			continue
		}
		// bm25() returns negative scores where lower is better; invert
		// and normalize into (0, 1], mirroring the teacher's
		// `1.0 + relevance/10.0` rescaling.
		score := 1.0 / (1.0 + (-rank))
		scored = append(scored, Scored{Unit: *unit, Score: score})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return topK(scored, k), rows.Err()
}

func scanMemoryWithRank(rows *sql.Rows) (*MemoryUnit, float64, error) {
	var (
		unit                                     MemoryUnit
		factType, tagsJSON, metadataJSON         string
		embedding                                []byte
		occurredStart, occurredEnd, mentionedAt  sql.NullTime
		consolidatedAt                           sql.NullTime
		sourceIDsJSON, historyJSON                string
		documentID                                sql.NullString
		rank                                       float64
	)
	if err := rows.Scan(
		&unit.ID, &unit.BankID, &unit.Text, &factType, &embedding, &tagsJSON, &metadataJSON,
		&unit.EventDate, &occurredStart, &occurredEnd, &mentionedAt,
		&unit.CreatedAt, &unit.UpdatedAt, &consolidatedAt,
		&sourceIDsJSON, &unit.ProofCount, &historyJSON, &documentID,
		&rank,
	); err != nil {
		return nil, 0, err
	}
	unit.FactType = FactType(factType)
	unit.Embedding = unpackEmbedding(embedding)
	unit.Tags = unmarshalTags(tagsJSON)
	unit.Metadata = unmarshalMap(metadataJSON)
	unit.SourceMemoryIDs = unmarshalIDs(sourceIDsJSON)
	unit.History = unmarshalHistory(historyJSON)
	if occurredStart.Valid {
		t := occurredStart.Time
		unit.OccurredStart = &t
	}
	if occurredEnd.Valid {
		t := occurredEnd.Time
		unit.OccurredEnd = &t
	}
	if mentionedAt.Valid {
		t := mentionedAt.Time
		unit.MentionedAt = &t
	}
	if consolidatedAt.Valid {
		t := consolidatedAt.Time
		unit.ConsolidatedAt = &t
	}
	if documentID.Valid {
		s := documentID.String
		unit.DocumentID = &s
	}
	return &unit, rank, nil
}

func escapeFTS5Query(q string) string {
	out := ""
	for _, r := range q {
		if r == '"' {
			out += `""`
		} else {
			out += string(r)
		}
	}
	return `"` + out + `"`
}

func topK(scored []Scored, k int) []Scored {
	if k > 0 && len(scored) > k {
		return scored[:k]
	}
	return scored
}
