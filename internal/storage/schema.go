package storage

// SchemaVersion is bumped whenever CoreSchema changes shape.
const SchemaVersion = 1

// CoreSchema defines the relational tables: banks, memory_units,
// documents, async_operations, mental_models, directives, plus the
// tag-containment join table and the schema_version bookkeeping row.
// Modeled on the teacher's CoreSchema const-string convention.
const CoreSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS banks (
	bank_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	mission TEXT NOT NULL DEFAULT '',
	disposition TEXT NOT NULL DEFAULT '{}',
	config TEXT NOT NULL DEFAULT '{}',
	embedding_dimension INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	bank_id TEXT NOT NULL REFERENCES banks(bank_id) ON DELETE CASCADE,
	original_text TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_bank ON documents(bank_id);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(bank_id, content_hash);

CREATE TABLE IF NOT EXISTS memory_units (
	id TEXT PRIMARY KEY,
	bank_id TEXT NOT NULL REFERENCES banks(bank_id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	fact_type TEXT NOT NULL CHECK(fact_type IN ('experience','world','opinion','observation')),
	embedding BLOB,
	tags TEXT NOT NULL DEFAULT '[]',
	metadata TEXT NOT NULL DEFAULT '{}',
	event_date DATETIME NOT NULL,
	occurred_start DATETIME,
	occurred_end DATETIME,
	mentioned_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	consolidated_at DATETIME,
	source_memory_ids TEXT NOT NULL DEFAULT '[]',
	proof_count INTEGER NOT NULL DEFAULT 0,
	history TEXT NOT NULL DEFAULT '[]',
	document_id TEXT REFERENCES documents(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_memory_bank ON memory_units(bank_id);
CREATE INDEX IF NOT EXISTS idx_memory_fact_type ON memory_units(bank_id, fact_type);
CREATE INDEX IF NOT EXISTS idx_memory_consolidation_queue ON memory_units(bank_id, consolidated_at, fact_type, created_at);
CREATE INDEX IF NOT EXISTS idx_memory_document ON memory_units(document_id);
CREATE INDEX IF NOT EXISTS idx_memory_event_date ON memory_units(bank_id, event_date);

-- Tag containment index: one row per (memory_id, tag), the SQLite
-- analogue of a GIN index on a tags array. Populated/cleared in the
-- same transaction as memory_units writes.
CREATE TABLE IF NOT EXISTS memory_tags (
	memory_id TEXT NOT NULL REFERENCES memory_units(id) ON DELETE CASCADE,
	tag TEXT NOT NULL,
	PRIMARY KEY (memory_id, tag)
);
CREATE INDEX IF NOT EXISTS idx_memory_tags_tag ON memory_tags(tag);

CREATE TABLE IF NOT EXISTS async_operations (
	id TEXT PRIMARY KEY,
	bank_id TEXT NOT NULL REFERENCES banks(bank_id) ON DELETE CASCADE,
	kind TEXT NOT NULL CHECK(kind IN ('retain','consolidate','refresh_mental_model','batch_retain_child','batch_retain_parent')),
	status TEXT NOT NULL CHECK(status IN ('pending','running','completed','failed','cancelled')),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	started_at DATETIME,
	completed_at DATETIME,
	result_metadata TEXT NOT NULL DEFAULT '{}',
	error TEXT,
	parent_operation_id TEXT REFERENCES async_operations(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_operations_bank ON async_operations(bank_id, status);
CREATE INDEX IF NOT EXISTS idx_operations_parent ON async_operations(parent_operation_id);

CREATE TABLE IF NOT EXISTS mental_models (
	id TEXT PRIMARY KEY,
	bank_id TEXT NOT NULL REFERENCES banks(bank_id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	source_query TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	trigger_refresh_after_consolidation INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_mental_models_bank ON mental_models(bank_id);

CREATE TABLE IF NOT EXISTS directives (
	id TEXT PRIMARY KEY,
	bank_id TEXT NOT NULL REFERENCES banks(bank_id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	content TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	tags TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_directives_bank ON directives(bank_id, is_active);
`

// FTS5Schema defines the lexical index over memory_units.text and its
// sync triggers. Mirrors the teacher's memories_fts pattern: a
// standalone (not content-linked) FTS5 table kept in sync by triggers
// on the base table, since SQLite can't alter an external-content FTS5
// table's rowid mapping once memory IDs are strings, not rowids.
const FTS5Schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS memory_units_fts USING fts5(
	id UNINDEXED,
	text
);

CREATE TRIGGER IF NOT EXISTS memory_units_fts_insert AFTER INSERT ON memory_units BEGIN
	INSERT INTO memory_units_fts(id, text) VALUES (new.id, new.text);
END;

CREATE TRIGGER IF NOT EXISTS memory_units_fts_delete AFTER DELETE ON memory_units BEGIN
	DELETE FROM memory_units_fts WHERE id = old.id;
END;

CREATE TRIGGER IF NOT EXISTS memory_units_fts_update AFTER UPDATE OF text ON memory_units BEGIN
	DELETE FROM memory_units_fts WHERE id = old.id;
	INSERT INTO memory_units_fts(id, text) VALUES (new.id, new.text);
END;
`
