// Package store owns the durable graph: schema, migrations, a bounded
// reader pool, and a single mutex-guarded writer, grounded on the teacher's
// internal/storage/db.go (modernc.org/sqlite, WAL journaling, pragma tuning).
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"cgraph/internal/errors"
	"cgraph/internal/logging"
)

// DB wraps a single sqlite connection pool plus the writer mutex that
// serializes all mutations (spec §4.A: "a single writer guarded by a mutex").
type DB struct {
	conn      *sql.DB
	writerMu  sync.Mutex
	logger    *logging.Logger
	dbPath    string
	poolSize  int
}

// Open creates (if absent) .cgraph/graph.db under repoRoot, applies pragma
// tuning, and runs schema initialization or migration.
func Open(repoRoot string, poolSize int, logger *logging.Logger) (*DB, error) {
	dir := filepath.Join(repoRoot, ".cgraph")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.IO, "failed to create .cgraph directory", err)
	}
	dbPath := filepath.Join(dir, "graph.db")
	_, existsErr := os.Stat(dbPath)
	isNew := os.IsNotExist(existsErr)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.IO, "failed to open database", err)
	}
	if poolSize <= 0 {
		poolSize = 10
	}
	conn.SetMaxOpenConns(poolSize)
	conn.SetMaxIdleConns(poolSize)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA mmap_size=268435456",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, errors.Wrap(errors.IO, "failed to apply pragma: "+p, err)
		}
	}

	db := &DB{conn: conn, logger: logger, dbPath: dbPath, poolSize: poolSize}

	if isNew {
		if err := db.initializeSchema(); err != nil {
			conn.Close()
			return nil, err
		}
	} else {
		if err := db.runMigrations(); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return db, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error { return db.conn.Close() }

// WithTx runs fn inside a transaction acquired under the writer mutex,
// rolling back on panic or error (teacher's internal/storage/db.go pattern).
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	db.writerMu.Lock()
	defer db.writerMu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.Transient, "failed to commit transaction", err)
	}
	return nil
}

// Exec runs a pooled, non-transactional statement (readers and cache writes).
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query runs a pooled read query.
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow runs a pooled single-row read query.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// Logger exposes the store's logger to sibling packages that build on DB.
func (db *DB) Logger() *logging.Logger { return db.logger }
