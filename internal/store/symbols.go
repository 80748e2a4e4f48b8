package store

import (
	"database/sql"
	"fmt"
	"strings"

	"cgraph/internal/errors"
)

// GetLiveSymbolsForFile returns the symbols currently visible for fileID,
// the "old" side the differ compares a fresh extraction against.
func (db *DB) GetLiveSymbolsForFile(fileID int64) ([]Symbol, error) {
	rows, err := db.Query(
		`SELECT id, stable_id, file_id, kind, name, qualname, signature,
		        start_line, end_line, start_col, end_col, docstring,
		        first_seen_version, last_seen_version, deleted_version, fan_in, fan_out
		 FROM symbols WHERE file_id = ? AND deleted_version IS NULL`, fileID)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to query symbols for file", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

func scanSymbols(rows *sql.Rows) ([]Symbol, error) {
	var out []Symbol
	for rows.Next() {
		var s Symbol
		var deleted sql.NullInt64
		if err := rows.Scan(&s.ID, &s.StableID, &s.FileID, &s.Kind, &s.Name, &s.QualName, &s.Signature,
			&s.StartLine, &s.EndLine, &s.StartCol, &s.EndCol, &s.Docstring,
			&s.FirstSeenVersion, &s.LastSeenVersion, &deleted, &s.FanIn, &s.FanOut); err != nil {
			return nil, errors.Wrap(errors.Transient, "failed to scan symbol row", err)
		}
		if deleted.Valid {
			s.DeletedVersion = &deleted.Int64
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertSymbolTx inserts a newly added symbol.
func InsertSymbolTx(tx *sql.Tx, s *Symbol, graphVersion int64) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO symbols (stable_id, file_id, kind, name, qualname, signature,
		        start_line, end_line, start_col, end_col, docstring,
		        first_seen_version, last_seen_version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.StableID, s.FileID, s.Kind, s.Name, s.QualName, s.Signature,
		s.StartLine, s.EndLine, s.StartCol, s.EndCol, s.Docstring,
		graphVersion, graphVersion)
	if err != nil {
		return 0, errors.Wrap(errors.Transient, "failed to insert symbol", err)
	}
	return res.LastInsertId()
}

// UpdateSymbolTx updates a modified symbol's mutable fields in place,
// preserving its id and stable_id (spec §3 Lifecycle: "modified").
func UpdateSymbolTx(tx *sql.Tx, id int64, s *Symbol, graphVersion int64) error {
	_, err := tx.Exec(
		`UPDATE symbols SET signature = ?, start_line = ?, end_line = ?, start_col = ?, end_col = ?,
		        docstring = ?, last_seen_version = ?
		 WHERE id = ?`,
		s.Signature, s.StartLine, s.EndLine, s.StartCol, s.EndCol, s.Docstring, graphVersion, id)
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to update symbol", err)
	}
	return nil
}

// MarkSymbolDeletedTx retires a symbol (spec §3 Lifecycle: "retired").
func MarkSymbolDeletedTx(tx *sql.Tx, id int64, deletedVersion int64) error {
	_, err := tx.Exec(`UPDATE symbols SET deleted_version = ? WHERE id = ?`, deletedVersion, id)
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to mark symbol deleted", err)
	}
	return nil
}

// GetSymbolPredecessorByQualName finds the row a symbol replaced: the most
// recent symbol under the same qualname whose first_seen_version predates
// beforeVersion. A signature edit always mints a new stable_id (it's a hash
// of qualname, signature, and kind), so the prior state is retrievable only
// by qualname, not by the current row's own stable_id — the retired
// predecessor row is kept (deleted_version set, never overwritten), so it
// stays reachable this way. Used by analyze_diff to recover a symbol's
// signature from before an already-reindexed change.
func (db *DB) GetSymbolPredecessorByQualName(qualname string, beforeVersion int64) (*Symbol, error) {
	row := db.QueryRow(
		`SELECT id, stable_id, file_id, kind, name, qualname, signature,
		        start_line, end_line, start_col, end_col, docstring,
		        first_seen_version, last_seen_version, deleted_version, fan_in, fan_out
		 FROM symbols
		 WHERE qualname = ? AND first_seen_version < ?
		 ORDER BY first_seen_version DESC LIMIT 1`, qualname, beforeVersion)
	return scanSymbolRow(row)
}

func scanSymbolRow(row *sql.Row) (*Symbol, error) {
	var s Symbol
	var deleted sql.NullInt64
	err := row.Scan(&s.ID, &s.StableID, &s.FileID, &s.Kind, &s.Name, &s.QualName, &s.Signature,
		&s.StartLine, &s.EndLine, &s.StartCol, &s.EndCol, &s.Docstring,
		&s.FirstSeenVersion, &s.LastSeenVersion, &deleted, &s.FanIn, &s.FanOut)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to scan symbol row", err)
	}
	if deleted.Valid {
		s.DeletedVersion = &deleted.Int64
	}
	return &s, nil
}

// GetSymbolByQualName returns the live symbol with an exact qualname match.
func (db *DB) GetSymbolByQualName(qualname string) (*Symbol, error) {
	return scanSymbolRow(db.QueryRow(
		`SELECT id, stable_id, file_id, kind, name, qualname, signature,
		        start_line, end_line, start_col, end_col, docstring,
		        first_seen_version, last_seen_version, deleted_version, fan_in, fan_out
		 FROM symbols WHERE qualname = ? AND deleted_version IS NULL LIMIT 1`, qualname))
}

// FindSymbolsByQualNameSuffix implements the differ/edge-resolution fallback
// (spec §4.E step 2b): suffix match when exactly one candidate exists.
func (db *DB) FindSymbolsByQualNameSuffix(suffix string) ([]Symbol, error) {
	rows, err := db.Query(
		`SELECT id, stable_id, file_id, kind, name, qualname, signature,
		        start_line, end_line, start_col, end_col, docstring,
		        first_seen_version, last_seen_version, deleted_version, fan_in, fan_out
		 FROM symbols WHERE qualname LIKE ? AND deleted_version IS NULL`, "%"+suffix)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to query symbols by suffix", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SearchSymbols is find_symbol's candidate pre-filter (spec §4.H): it
// returns up to limit*4 live symbols whose name equals, starts with or
// contains query, optionally filtered by kind and language, unranked. The
// caller ranks them (exact > prefix > substring, then fan-in desc,
// qualname asc) and adds fuzzy matches itself.
func (db *DB) SearchSymbols(query string, kind, language string, limit int) ([]Symbol, error) {
	if limit <= 0 {
		limit = 50
	}
	var clauses []string
	var args []interface{}

	base := `SELECT s.id, s.stable_id, s.file_id, s.kind, s.name, s.qualname, s.signature,
		        s.start_line, s.end_line, s.start_col, s.end_col, s.docstring,
		        s.first_seen_version, s.last_seen_version, s.deleted_version, s.fan_in, s.fan_out
		 FROM symbols s JOIN files f ON f.id = s.file_id
		 WHERE s.deleted_version IS NULL AND f.deleted_version IS NULL`

	if kind != "" {
		clauses = append(clauses, "s.kind = ?")
		args = append(args, kind)
	}
	if language != "" {
		clauses = append(clauses, "f.language = ?")
		args = append(args, language)
	}
	clauses = append(clauses, "(s.name = ? OR s.name LIKE ? OR s.name LIKE ?)")
	args = append(args, query, query+"%", "%"+query+"%")

	sqlText := base + " AND " + strings.Join(clauses, " AND ") + " LIMIT ?"
	args = append(args, limit*4) // over-fetch; caller re-ranks and truncates
	rows, err := db.Query(sqlText, args...)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to search symbols", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// RecomputeFanCountsTx recounts fan_in/fan_out from CALLS edges for the
// given symbol ids (the open question in spec §9 is resolved here in favor
// of pre-aggregation at write time, see DESIGN.md).
func RecomputeFanCountsTx(tx *sql.Tx, symbolIDs []int64) error {
	for _, id := range symbolIDs {
		var fanIn, fanOut int
		if err := tx.QueryRow(
			`SELECT COUNT(*) FROM edges WHERE target_symbol_id = ? AND kind = ?`, id, EdgeCalls,
		).Scan(&fanIn); err != nil {
			return errors.Wrap(errors.Transient, "failed to count fan-in", err)
		}
		if err := tx.QueryRow(
			`SELECT COUNT(*) FROM edges WHERE source_symbol_id = ? AND kind = ?`, id, EdgeCalls,
		).Scan(&fanOut); err != nil {
			return errors.Wrap(errors.Transient, "failed to count fan-out", err)
		}
		if _, err := tx.Exec(`UPDATE symbols SET fan_in = ?, fan_out = ? WHERE id = ?`, fanIn, fanOut, id); err != nil {
			return errors.Wrap(errors.Transient, "failed to update fan counts", err)
		}
	}
	return nil
}

// GetSymbolByID fetches a single symbol by row id.
func (db *DB) GetSymbolByID(id int64) (*Symbol, error) {
	return scanSymbolRow(db.QueryRow(
		`SELECT id, stable_id, file_id, kind, name, qualname, signature,
		        start_line, end_line, start_col, end_col, docstring,
		        first_seen_version, last_seen_version, deleted_version, fan_in, fan_out
		 FROM symbols WHERE id = ?`, id))
}

// FilePathOf resolves a symbol's owning file path, used throughout the
// query engine when building module/file groupings.
func (db *DB) FilePathOf(fileID int64) (string, error) {
	var path string
	err := db.QueryRow(`SELECT path FROM files WHERE id = ?`, fileID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("file %d not found", fileID)
	}
	if err != nil {
		return "", errors.Wrap(errors.Transient, "failed to resolve file path", err)
	}
	return path, nil
}
