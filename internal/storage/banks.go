package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// EnsureBank creates the bank row if it doesn't already exist,
// mirroring the teacher's ensureDomainExists auto-creation pattern
// generalized from "domain" to "bank".
func (d *Database) EnsureBank(bankID, name string) (*Bank, error) {
	existing, err := d.GetBank(bankID)
	if err == nil {
		return existing, nil
	}

	now := time.Now().UTC()
	_, err = d.Exec(`
		INSERT OR IGNORE INTO banks (bank_id, name, mission, disposition, config, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)`,
		bankID, name, "", "{}", "{}", now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bank: %w", err)
	}
	return d.GetBank(bankID)
}

// GetBank fetches a bank row by ID.
func (d *Database) GetBank(bankID string) (*Bank, error) {
	row := d.QueryRow(`SELECT bank_id, name, mission, disposition, config, created_at, updated_at FROM banks WHERE bank_id = ?`, bankID)
	var b Bank
	var disposition, config string
	if err := row.Scan(&b.BankID, &b.Name, &b.Mission, &disposition, &config, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: bank %s", ErrNotFound, bankID)
		}
		return nil, err
	}
	b.Disposition = unmarshalMap(disposition)
	b.Config = unmarshalMap(config)
	return &b, nil
}

// ListBankIDs returns every bank id, for a daemon that sweeps
// consolidation and mental-model refreshes across all banks.
func (d *Database) ListBankIDs() ([]string, error) {
	rows, err := d.Query(`SELECT bank_id FROM banks ORDER BY bank_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DeleteBank cascades to all children via ON DELETE CASCADE foreign
// keys (memory_units, documents, async_operations, mental_models,
// directives).
func (d *Database) DeleteBank(bankID string) error {
	res, err := d.Exec(`DELETE FROM banks WHERE bank_id = ?`, bankID)
	if err != nil {
		return fmt.Errorf("failed to delete bank: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: bank %s", ErrNotFound, bankID)
	}
	return nil
}
