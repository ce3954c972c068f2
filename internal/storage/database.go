package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/hindsight-run/hindsight/internal/logging"
)

var log = logging.GetLogger("storage")

// Database wraps a SQLite connection pool with the engine's
// read-committed-at-least, linearizable-row-update contract (§4.1).
// The teacher's database.go uses mattn/go-sqlite3 exclusively; this
// type accepts either driver so tests can run the pure-Go
// modernc.org/sqlite variant without cgo.
type Database struct {
	db     *sql.DB
	driver string
	path   string
	mu     sync.RWMutex
}

// Open creates (if needed) the parent directory and opens a SQLite
// database at path with WAL mode and foreign keys enabled, mirroring
// the teacher's Open(). driver must be "sqlite3" (mattn, cgo) or
// "sqlite" (modernc, pure Go).
func Open(driver, path string) (*Database, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path
	switch driver {
	case "sqlite3":
		dsn = path + "?_foreign_keys=on&_journal_mode=WAL"
	case "sqlite":
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows only one writer at a time; serialize through a
	// single connection the way the teacher's Open() does.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db, driver: driver, path: path}, nil
}

// InitSchema creates all tables and the FTS5 lexical index
// transactionally. FTS5 failure is logged but non-fatal, matching the
// teacher's tolerance for FTS5-less SQLite builds.
func (d *Database) InitSchema() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(CoreSchema); err != nil {
		return fmt.Errorf("failed to create core schema: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO schema_version(version) VALUES (?)`, SchemaVersion,
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	if _, err := d.db.Exec(FTS5Schema); err != nil {
		log.Warn("fts5 schema unavailable, lexical search degraded", "error", err)
	}

	return nil
}

// DB returns the underlying connection pool for callers that need raw
// access (operation tracker queries, tests).
func (d *Database) DB() *sql.DB { return d.db }

// Path returns the filesystem path this database was opened against.
func (d *Database) Path() string { return d.path }

// Close closes the underlying connection pool.
func (d *Database) Close() error { return d.db.Close() }

// Exec runs a write statement under the row-level lock.
func (d *Database) Exec(query string, args ...any) (sql.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Exec(query, args...)
}

// Query runs a read statement.
func (d *Database) Query(query string, args ...any) (*sql.Rows, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db.Query(query, args...)
}

// QueryRow runs a single-row read statement.
func (d *Database) QueryRow(query string, args ...any) *sql.Row {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db.QueryRow(query, args...)
}

// Begin starts a transaction. Callers hold the write lock for its
// duration; this is what gives the engine its linearizable-row-update
// guarantee on a single-writer SQLite pool.
func (d *Database) Begin() (*sql.Tx, func(), error) {
	d.mu.Lock()
	tx, err := d.db.Begin()
	if err != nil {
		d.mu.Unlock()
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, d.mu.Unlock, nil
}

// Checkpoint truncates the WAL file.
func (d *Database) Checkpoint() error {
	_, err := d.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Vacuum reclaims unused space.
func (d *Database) Vacuum() error {
	_, err := d.Exec("VACUUM")
	return err
}
