package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertMemory atomically inserts a memory row and populates its
// derived tag-containment index entries (§4.1 insert_memory). If
// unit.ID is empty a UUID is generated, mirroring the teacher's
// CreateMemory.
func (d *Database) InsertMemory(unit *MemoryUnit) error {
	if unit.BankID == "" {
		return fmt.Errorf("%w: bank_id required", ErrValidation)
	}
	if unit.Text == "" {
		return fmt.Errorf("%w: text required", ErrValidation)
	}
	if unit.ID == "" {
		unit.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = now
	}
	if unit.UpdatedAt.IsZero() {
		unit.UpdatedAt = now
	}
	if unit.IsObservation() {
		if unit.ProofCount != len(unit.SourceMemoryIDs) {
			return fmt.Errorf("%w: observation proof_count must equal len(source_memory_ids)", ErrValidation)
		}
	}

	if err := d.checkDimension(unit.BankID, len(unit.Embedding)); err != nil {
		return err
	}

	tx, unlock, err := d.Begin()
	if err != nil {
		return err
	}
	defer unlock()
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO memory_units (
			id, bank_id, text, fact_type, embedding, tags, metadata,
			event_date, occurred_start, occurred_end, mentioned_at,
			created_at, updated_at, consolidated_at,
			source_memory_ids, proof_count, history, document_id
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		unit.ID, unit.BankID, unit.Text, string(unit.FactType), packEmbedding(unit.Embedding),
		marshalTags(unit.Tags), marshalJSON(unit.Metadata),
		unit.EventDate, nullTime(unit.OccurredStart), nullTime(unit.OccurredEnd), nullTime(unit.MentionedAt),
		unit.CreatedAt, unit.UpdatedAt, nullTime(unit.ConsolidatedAt),
		marshalIDs(unit.SourceMemoryIDs), unit.ProofCount, marshalHistory(unit.History), nullString(unit.DocumentID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}

	if err := insertTags(tx, unit.ID, unit.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit memory insert: %w", err)
	}
	return nil
}

func insertTags(tx *sql.Tx, memoryID string, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO memory_tags(memory_id, tag) VALUES (?,?)`, memoryID, tag); err != nil {
			return fmt.Errorf("failed to index tag: %w", err)
		}
	}
	return nil
}

// checkDimension enforces §4.1's rule that the embedding dimension is
// fixed on the bank's first write and cannot change while rows exist.
func (d *Database) checkDimension(bankID string, dim int) error {
	if dim == 0 {
		return nil
	}
	var existing int
	err := d.QueryRow(`SELECT embedding_dimension FROM banks WHERE bank_id = ?`, bankID).Scan(&existing)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: bank %s", ErrNotFound, bankID)
	}
	if err != nil {
		return fmt.Errorf("failed to read bank dimension: %w", err)
	}
	if existing == 0 {
		_, err := d.Exec(`UPDATE banks SET embedding_dimension = ? WHERE bank_id = ?`, dim, bankID)
		return err
	}
	if existing != dim {
		return fmt.Errorf("%w: bank declared dimension %d, got %d", ErrDimensionMismatch, existing, dim)
	}
	return nil
}

// MemoryUpdate carries partial-update fields; nil means "leave
// unchanged", mirroring the teacher's pointer-based MemoryUpdate.
type MemoryUpdate struct {
	Text            *string
	Embedding       []float32
	Tags            []string
	Metadata        map[string]any
	OccurredStart   *time.Time
	OccurredEnd     *time.Time
	MentionedAt     *time.Time
	ConsolidatedAt  *time.Time
	ClearConsolidatedAt bool
	SourceMemoryIDs []string
	ProofCount      *int
	History         []HistoryEntry
}

// UpdateMemory applies a partial update, preserving the
// tag-containment index and bumping updated_at, mirroring the
// teacher's dynamic SET-clause builder in UpdateMemory.
func (d *Database) UpdateMemory(id string, u *MemoryUpdate) error {
	tx, unlock, err := d.Begin()
	if err != nil {
		return err
	}
	defer unlock()
	defer tx.Rollback()

	setClauses := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if u.Text != nil {
		setClauses = append(setClauses, "text = ?")
		args = append(args, *u.Text)
	}
	if u.Embedding != nil {
		setClauses = append(setClauses, "embedding = ?")
		args = append(args, packEmbedding(u.Embedding))
	}
	if u.Tags != nil {
		setClauses = append(setClauses, "tags = ?")
		args = append(args, marshalTags(u.Tags))
	}
	if u.Metadata != nil {
		setClauses = append(setClauses, "metadata = ?")
		args = append(args, marshalJSON(u.Metadata))
	}
	if u.OccurredStart != nil {
		setClauses = append(setClauses, "occurred_start = ?")
		args = append(args, *u.OccurredStart)
	}
	if u.OccurredEnd != nil {
		setClauses = append(setClauses, "occurred_end = ?")
		args = append(args, *u.OccurredEnd)
	}
	if u.MentionedAt != nil {
		setClauses = append(setClauses, "mentioned_at = ?")
		args = append(args, *u.MentionedAt)
	}
	if u.ClearConsolidatedAt {
		setClauses = append(setClauses, "consolidated_at = NULL")
	} else if u.ConsolidatedAt != nil {
		setClauses = append(setClauses, "consolidated_at = ?")
		args = append(args, *u.ConsolidatedAt)
	}
	if u.SourceMemoryIDs != nil {
		setClauses = append(setClauses, "source_memory_ids = ?")
		args = append(args, marshalIDs(u.SourceMemoryIDs))
	}
	if u.ProofCount != nil {
		setClauses = append(setClauses, "proof_count = ?")
		args = append(args, *u.ProofCount)
	}
	if u.History != nil {
		setClauses = append(setClauses, "history = ?")
		args = append(args, marshalHistory(u.History))
	}

	query := "UPDATE memory_units SET "
	for i, c := range setClauses {
		if i > 0 {
			query += ", "
		}
		query += c
	}
	query += " WHERE id = ?"
	args = append(args, id)

	res, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update memory: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}

	if u.Tags != nil {
		if _, err := tx.Exec(`DELETE FROM memory_tags WHERE memory_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear tag index: %w", err)
		}
		if err := insertTags(tx, id, u.Tags); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit memory update: %w", err)
	}
	return nil
}

// DeleteMemory removes the row and its tag-index entries. Callers are
// responsible for observation invalidation (§4.5.4); see
// internal/consolidate.Invalidate.
func (d *Database) DeleteMemory(id string) error {
	res, err := d.Exec(`DELETE FROM memory_units WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}
	return nil
}

// GetMemory fetches a single row by ID.
func (d *Database) GetMemory(id string) (*MemoryUnit, error) {
	row := d.QueryRow(`SELECT `+memoryColumns+` FROM memory_units WHERE id = ?`, id)
	unit, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}
	return unit, err
}

// FetchByIDs batch-hydrates rows, preserving no particular order
// (callers reorder as needed).
func (d *Database) FetchByIDs(ids []string) ([]MemoryUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + memoryColumns + ` FROM memory_units WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// ObservationsCiting returns observation IDs whose source_memory_ids
// contains memoryID. SQLite has no native array-containment operator,
// so this does a LIKE scan over the JSON-encoded ID array — acceptable
// at the bank scale this engine targets; a generated column + index
// would be the next optimization if it becomes hot.
func (d *Database) ObservationsCiting(memoryID string) ([]string, error) {
	rows, err := d.Query(
		`SELECT id, source_memory_ids FROM memory_units WHERE fact_type = 'observation' AND source_memory_ids LIKE ?`,
		"%\""+memoryID+"\"%",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query citing observations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, sourceIDsJSON string
		if err := rows.Scan(&id, &sourceIDsJSON); err != nil {
			return nil, err
		}
		for _, sid := range unmarshalIDs(sourceIDsJSON) {
			if sid == memoryID {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, rows.Err()
}

func placeholders(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += "?"
	}
	return out
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
