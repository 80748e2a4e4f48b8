package store

import (
	"database/sql"

	"cgraph/internal/errors"
)

// currentSchemaVersion is bumped whenever an additive migration is added
// below. Columns are never dropped or renamed (spec §4.A).
const currentSchemaVersion = 1

func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		statements := append([]string{
			createSchemaVersionTable,
			createGraphVersionTable,
			createFilesTable,
			createSymbolsTable,
			createEdgesTable,
			createCoChangeTable,
			createQueryCacheTable,
			createViewCacheTable,
			createNegativeCacheTable,
		}, createIndexes...)
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return errors.Wrap(errors.Schema, "failed to initialize schema", err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, currentSchemaVersion); err != nil {
			return errors.Wrap(errors.Schema, "failed to record schema version", err)
		}
		if _, err := tx.Exec(`INSERT INTO graph_version (version) VALUES (0)`); err != nil {
			return errors.Wrap(errors.Schema, "failed to initialize graph version", err)
		}
		return nil
	})
}

// runMigrations applies additive migrations gated by the stored version.
// Pattern: `if version < N { ... }` exactly once per migration, grounded on
// the teacher's internal/storage/schema.go runMigrations stub.
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return errors.New(errors.Schema, "on-disk schema is newer than this binary supports")
	}
	// if version < 2 { ... } additive migrations go here as the schema grows.
	return nil
}

func (db *DB) getSchemaVersion() (int, error) {
	var version int
	err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err != nil {
		return 0, errors.Wrap(errors.Schema, "failed to read schema version", err)
	}
	return version, nil
}

const createSchemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
)`

const createGraphVersionTable = `
CREATE TABLE IF NOT EXISTS graph_version (
	version INTEGER NOT NULL,
	committed_at TEXT,
	commit_hash TEXT
)`

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	language TEXT NOT NULL,
	digest TEXT NOT NULL,
	size INTEGER NOT NULL,
	first_seen_version INTEGER NOT NULL,
	deleted_version INTEGER
)`

const createSymbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stable_id TEXT NOT NULL,
	file_id INTEGER NOT NULL REFERENCES files(id),
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	qualname TEXT NOT NULL,
	signature TEXT NOT NULL DEFAULT '',
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	start_col INTEGER NOT NULL DEFAULT 0,
	end_col INTEGER NOT NULL DEFAULT 0,
	docstring TEXT NOT NULL DEFAULT '',
	first_seen_version INTEGER NOT NULL,
	last_seen_version INTEGER NOT NULL,
	deleted_version INTEGER,
	fan_in INTEGER NOT NULL DEFAULT 0,
	fan_out INTEGER NOT NULL DEFAULT 0
)`

const createEdgesTable = `
CREATE TABLE IF NOT EXISTS edges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	source_symbol_id INTEGER REFERENCES symbols(id),
	source_file_id INTEGER REFERENCES files(id),
	target_symbol_id INTEGER REFERENCES symbols(id),
	target_qualname TEXT,
	evidence TEXT NOT NULL DEFAULT '',
	evidence_start_line INTEGER NOT NULL DEFAULT 0,
	evidence_end_line INTEGER NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 1.0,
	graph_version INTEGER NOT NULL,
	commit_hash TEXT
)`

const createCoChangeTable = `
CREATE TABLE IF NOT EXISTS co_change (
	file_a TEXT NOT NULL,
	file_b TEXT NOT NULL,
	weight INTEGER NOT NULL DEFAULT 0,
	commits_a INTEGER NOT NULL DEFAULT 0,
	commits_b INTEGER NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0,
	last_commit_at TEXT,
	PRIMARY KEY (file_a, file_b)
)`

const createQueryCacheTable = `
CREATE TABLE IF NOT EXISTS query_cache (
	key TEXT PRIMARY KEY,
	value_blob BLOB NOT NULL,
	compressed INTEGER NOT NULL DEFAULT 0,
	head_commit TEXT,
	state_id TEXT,
	expires_at TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

const createViewCacheTable = `
CREATE TABLE IF NOT EXISTS view_cache (
	key TEXT PRIMARY KEY,
	value_blob BLOB NOT NULL,
	compressed INTEGER NOT NULL DEFAULT 0,
	state_id TEXT,
	expires_at TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

const createNegativeCacheTable = `
CREATE TABLE IF NOT EXISTS negative_cache (
	key TEXT PRIMARY KEY,
	error_type TEXT NOT NULL,
	error_message TEXT NOT NULL,
	state_id TEXT,
	expires_at TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

var createIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_symbols_qualname ON symbols(qualname)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_name_kind ON symbols(name, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_file_version ON symbols(file_id, last_seen_version)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_stable_id ON symbols(stable_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_source_symbol ON edges(source_symbol_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_target_symbol ON edges(target_symbol_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_target_qualname ON edges(target_qualname)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(kind)`,
	`CREATE INDEX IF NOT EXISTS idx_files_path ON files(path)`,
}
