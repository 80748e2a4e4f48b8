package store

import (
	"database/sql"

	"cgraph/internal/errors"
)

// GetFileByPath returns the live (non-deleted) file row for path, or nil.
func (db *DB) GetFileByPath(path string) (*File, error) {
	return scanFile(db.QueryRow(
		`SELECT id, path, language, digest, size, first_seen_version, deleted_version
		 FROM files WHERE path = ? AND deleted_version IS NULL`, path))
}

func scanFile(row *sql.Row) (*File, error) {
	var f File
	var deleted sql.NullInt64
	err := row.Scan(&f.ID, &f.Path, &f.Language, &f.Digest, &f.Size, &f.FirstSeenVersion, &deleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to scan file row", err)
	}
	if deleted.Valid {
		f.DeletedVersion = &deleted.Int64
	}
	return &f, nil
}

// GetAllLiveFiles returns every non-deleted file, ordered by path — the
// enumeration repo_map's module grouping walks (spec §4.H repo_map).
func (db *DB) GetAllLiveFiles() ([]File, error) {
	rows, err := db.Query(
		`SELECT id, path, language, digest, size, first_seen_version, deleted_version
		 FROM files WHERE deleted_version IS NULL ORDER BY path`)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to query live files", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		var deleted sql.NullInt64
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.Digest, &f.Size, &f.FirstSeenVersion, &deleted); err != nil {
			return nil, errors.Wrap(errors.Transient, "failed to scan file row", err)
		}
		if deleted.Valid {
			f.DeletedVersion = &deleted.Int64
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpsertFileTx inserts a new file row or updates an existing one's digest,
// size, and language in place, returning its id.
func UpsertFileTx(tx *sql.Tx, path, language, digest string, size, graphVersion int64) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM files WHERE path = ? AND deleted_version IS NULL`, path).Scan(&id)
	if err == sql.ErrNoRows {
		res, err := tx.Exec(
			`INSERT INTO files (path, language, digest, size, first_seen_version) VALUES (?, ?, ?, ?, ?)`,
			path, language, digest, size, graphVersion)
		if err != nil {
			return 0, errors.Wrap(errors.Transient, "failed to insert file", err)
		}
		return res.LastInsertId()
	}
	if err != nil {
		return 0, errors.Wrap(errors.Transient, "failed to look up file", err)
	}
	if _, err := tx.Exec(
		`UPDATE files SET language = ?, digest = ?, size = ? WHERE id = ?`,
		language, digest, size, id); err != nil {
		return 0, errors.Wrap(errors.Transient, "failed to update file", err)
	}
	return id, nil
}

// MarkFileDeletedTx marks a file's deleted_version (spec §3 Invariant 6).
func MarkFileDeletedTx(tx *sql.Tx, fileID, deletedVersion int64) error {
	_, err := tx.Exec(`UPDATE files SET deleted_version = ? WHERE id = ?`, deletedVersion, fileID)
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to mark file deleted", err)
	}
	return nil
}

// RenameFileTx updates a file's path in place (used for ChangeTypeRenamed,
// grounded on the teacher's "CRITICAL: delete using OldPath, insert using
// Path" comment in internal/incremental/updater.go — cgraph instead updates
// the row directly, preserving symbol history across the rename).
func RenameFileTx(tx *sql.Tx, oldPath, newPath string) error {
	_, err := tx.Exec(`UPDATE files SET path = ? WHERE path = ? AND deleted_version IS NULL`, newPath, oldPath)
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to rename file", err)
	}
	return nil
}
