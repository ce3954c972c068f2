package storage

import (
	"database/sql"
)

const memoryColumns = `
	id, bank_id, text, fact_type, embedding, tags, metadata,
	event_date, occurred_start, occurred_end, mentioned_at,
	created_at, updated_at, consolidated_at,
	source_memory_ids, proof_count, history, document_id`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(r rowScanner) (*MemoryUnit, error) {
	var (
		unit                                                MemoryUnit
		factType, tagsJSON, metadataJSON                    string
		embedding                                           []byte
		occurredStart, occurredEnd, mentionedAt             sql.NullTime
		consolidatedAt                                       sql.NullTime
		sourceIDsJSON, historyJSON                          string
		documentID                                          sql.NullString
	)
	if err := r.Scan(
		&unit.ID, &unit.BankID, &unit.Text, &factType, &embedding, &tagsJSON, &metadataJSON,
		&unit.EventDate, &occurredStart, &occurredEnd, &mentionedAt,
		&unit.CreatedAt, &unit.UpdatedAt, &consolidatedAt,
		&sourceIDsJSON, &unit.ProofCount, &historyJSON, &documentID,
	); err != nil {
		return nil, err
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
	return &unit, nil
}

func scanMemories(rows *sql.Rows) ([]MemoryUnit, error) {
	var out []MemoryUnit
	for rows.Next() {
		unit, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *unit)
	}
	return out, rows.Err()
}
