package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateMentalModel inserts a new mental-model row.
func (d *Database) CreateMentalModel(m *MentalModel) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	_, err := d.Exec(`
		INSERT INTO mental_models (id, bank_id, name, source_query, content, tags, trigger_refresh_after_consolidation, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		m.ID, m.BankID, m.Name, m.SourceQuery, m.Content, marshalTags(m.Tags),
		boolToInt(m.Trigger.RefreshAfterConsolidation), m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// ListMentalModels returns every mental model for a bank, used by
// consolidation's refresh-trigger sweep (§4.5.3).
func (d *Database) ListMentalModels(bankID string) ([]MentalModel, error) {
	rows, err := d.Query(`SELECT id, bank_id, name, source_query, content, tags, trigger_refresh_after_consolidation, created_at, updated_at FROM mental_models WHERE bank_id = ?`, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MentalModel
	for rows.Next() {
		var m MentalModel
		var tags string
		var triggerFlag int
		if err := rows.Scan(&m.ID, &m.BankID, &m.Name, &m.SourceQuery, &m.Content, &tags, &triggerFlag, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.Tags = unmarshalTags(tags)
		m.Trigger = MentalModelTrigger{RefreshAfterConsolidation: triggerFlag != 0}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMentalModelContent overwrites a mental model's synthesized
// content after a refresh job runs.
func (d *Database) UpdateMentalModelContent(id, content string) error {
	res, err := d.Exec(`UPDATE mental_models SET content = ?, updated_at = ? WHERE id = ?`, content, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: mental model %s", ErrNotFound, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
