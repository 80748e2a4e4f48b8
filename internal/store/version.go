package store

import (
	"database/sql"
	"time"

	"cgraph/internal/errors"
)

// CurrentGraphVersion returns the maximum committed graph version (spec §3).
func (db *DB) CurrentGraphVersion() (int64, error) {
	var v int64
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM graph_version`).Scan(&v)
	if err != nil {
		return 0, errors.Wrap(errors.Transient, "failed to read graph version", err)
	}
	return v, nil
}

// CommitVersion advances the graph version within the caller's transaction
// and records the optional commit hash (spec §4.F, the "Committed" state).
func CommitVersion(tx *sql.Tx, newVersion int64, commitHash string) error {
	var hash interface{}
	if commitHash != "" {
		hash = commitHash
	}
	_, err := tx.Exec(
		`INSERT INTO graph_version (version, committed_at, commit_hash) VALUES (?, ?, ?)`,
		newVersion, time.Now().UTC().Format(time.RFC3339), hash,
	)
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to commit graph version", err)
	}
	return nil
}

// NextGraphVersion returns CurrentGraphVersion()+1, the version a fresh
// indexing round will commit under.
func (db *DB) NextGraphVersion() (int64, error) {
	v, err := db.CurrentGraphVersion()
	if err != nil {
		return 0, err
	}
	return v + 1, nil
}
