package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateDocument inserts a content container row.
func (d *Database) CreateDocument(doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	_, err := d.Exec(`
		INSERT INTO documents (id, bank_id, original_text, content_hash, created_at, updated_at)
		VALUES (?,?,?,?,?,?)`,
		doc.ID, doc.BankID, doc.OriginalText, doc.ContentHash, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument fetches a document by ID.
func (d *Database) GetDocument(id string) (*Document, error) {
	row := d.QueryRow(`SELECT id, bank_id, original_text, content_hash, created_at, updated_at FROM documents WHERE id = ?`, id)
	var doc Document
	if err := row.Scan(&doc.ID, &doc.BankID, &doc.OriginalText, &doc.ContentHash, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &doc, nil
}

// MemoryIDsForDocument lists the memory units belonging to a document,
// used by the caller to drive observation invalidation before the
// document (and its memories, via ON DELETE CASCADE) is removed.
func (d *Database) MemoryIDsForDocument(documentID string) ([]string, error) {
	rows, err := d.Query(`SELECT id FROM memory_units WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list document memories: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteDocument removes the row; ON DELETE CASCADE removes its
// memory units. Callers must invalidate observations for each of those
// memory IDs first (§3: "Deleting a document deletes its memory units
// and triggers observation invalidation").
func (d *Database) DeleteDocument(id string) error {
	res, err := d.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return nil
}

// UnconsolidatedBatch returns up to limit memory units with
// consolidated_at IS NULL and fact_type IN (experience, world), oldest
// first by created_at (§4.5.1 step 1).
func (d *Database) UnconsolidatedBatch(bankID string, limit int) ([]MemoryUnit, error) {
	rows, err := d.Query(`
		SELECT `+memoryColumns+`
		FROM memory_units
		WHERE bank_id = ? AND consolidated_at IS NULL AND fact_type IN ('experience','world')
		ORDER BY created_at ASC
		LIMIT ?`,
		bankID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load unconsolidated batch: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// MarkConsolidated stamps consolidated_at = now() for every ID in one
// batched statement, per §4.5.2 step 5 / §5's "one batched statement
// per LLM batch, after actions" ordering requirement.
func (d *Database) MarkConsolidated(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	tx, unlock, err := d.Begin()
	if err != nil {
		return err
	}
	defer unlock()
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE memory_units SET consolidated_at = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare consolidated-at update: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(now, id); err != nil {
			return fmt.Errorf("failed to mark memory %s consolidated: %w", id, err)
		}
	}
	return tx.Commit()
}
