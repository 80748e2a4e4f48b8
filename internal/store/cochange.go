package store

import (
	"database/sql"

	"cgraph/internal/errors"
)

// UpsertCoChangeTx records (or strengthens) a co-change pair mined from git
// history (spec §3 Co-change record, grounded on the historical impact layer).
func UpsertCoChangeTx(tx *sql.Tx, rec CoChangeRecord) error {
	a, b := rec.FileA, rec.FileB
	if a > b {
		a, b = b, a
	}
	_, err := tx.Exec(
		`INSERT INTO co_change (file_a, file_b, weight, commits_a, commits_b, confidence, last_commit_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_a, file_b) DO UPDATE SET
		   weight = weight + excluded.weight,
		   commits_a = excluded.commits_a,
		   commits_b = excluded.commits_b,
		   confidence = excluded.confidence,
		   last_commit_at = excluded.last_commit_at`,
		a, b, rec.Weight, rec.CommitsA, rec.CommitsB, rec.Confidence, rec.LastCommitAt)
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to upsert co-change record", err)
	}
	return nil
}

// GetCoChangePartners returns files that historically change together with
// path, ordered by confidence descending (spec §4.H Historical impact layer).
func (db *DB) GetCoChangePartners(path string, limit int) ([]CoChangeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(
		`SELECT file_a, file_b, weight, commits_a, commits_b, confidence, last_commit_at
		 FROM co_change WHERE file_a = ? OR file_b = ?
		 ORDER BY confidence DESC LIMIT ?`, path, path, limit)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to query co-change partners", err)
	}
	defer rows.Close()

	var out []CoChangeRecord
	for rows.Next() {
		var r CoChangeRecord
		var lastCommit sql.NullString
		if err := rows.Scan(&r.FileA, &r.FileB, &r.Weight, &r.CommitsA, &r.CommitsB, &r.Confidence, &lastCommit); err != nil {
			return nil, errors.Wrap(errors.Transient, "failed to scan co-change row", err)
		}
		r.LastCommitAt = lastCommit.String
		out = append(out, r)
	}
	return out, rows.Err()
}
