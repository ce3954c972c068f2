package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateDirective inserts a new standing-instruction row.
func (d *Database) CreateDirective(dir *Directive) error {
	if dir.ID == "" {
		dir.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if dir.CreatedAt.IsZero() {
		dir.CreatedAt = now
	}
	dir.UpdatedAt = now

	_, err := d.Exec(`
		INSERT INTO directives (id, bank_id, name, content, priority, is_active, tags, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		dir.ID, dir.BankID, dir.Name, dir.Content, dir.Priority, boolToInt(dir.IsActive), marshalTags(dir.Tags),
		dir.CreatedAt, dir.UpdatedAt,
	)
	return err
}

// ListActiveDirectives returns every active directive for a bank,
// ordered by descending priority (highest priority first), for
// reflection's standing-instruction assembly (§4.7).
func (d *Database) ListActiveDirectives(bankID string) ([]Directive, error) {
	rows, err := d.Query(`
		SELECT id, bank_id, name, content, priority, is_active, tags, created_at, updated_at
		FROM directives WHERE bank_id = ? AND is_active = 1 ORDER BY priority DESC`, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Directive
	for rows.Next() {
		var dir Directive
		var tags string
		var isActive int
		if err := rows.Scan(&dir.ID, &dir.BankID, &dir.Name, &dir.Content, &dir.Priority, &isActive, &tags, &dir.CreatedAt, &dir.UpdatedAt); err != nil {
			return nil, err
		}
		dir.IsActive = isActive != 0
		dir.Tags = unmarshalTags(tags)
		out = append(out, dir)
	}
	return out, rows.Err()
}

// SetDirectiveActive toggles a directive's is_active flag.
func (d *Database) SetDirectiveActive(id string, active bool) error {
	res, err := d.Exec(`UPDATE directives SET is_active = ?, updated_at = ? WHERE id = ?`, boolToInt(active), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: directive %s", ErrNotFound, id)
	}
	return nil
}
