package store

import (
	"database/sql"

	"cgraph/internal/errors"
)

// DeleteEdgesForFileTx wholesale-replaces all edges sourced inside fileID
// (spec §4.D: "edges ... are replaced wholesale").
func DeleteEdgesForFileTx(tx *sql.Tx, fileID int64) error {
	_, err := tx.Exec(`DELETE FROM edges WHERE source_file_id = ?`, fileID)
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to delete edges for file", err)
	}
	return nil
}

// InsertEdgeTx inserts one edge row.
func InsertEdgeTx(tx *sql.Tx, e *Edge) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO edges (kind, source_symbol_id, source_file_id, target_symbol_id, target_qualname,
		        evidence, evidence_start_line, evidence_end_line, confidence, graph_version, commit_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.SourceSymbolID, e.SourceFileID, e.TargetSymbolID, nullableString(e.TargetQualName),
		e.Evidence, e.EvidenceStartLine, e.EvidenceEndLine, e.Confidence, e.GraphVersion, nullableString(e.CommitHash))
	if err != nil {
		return 0, errors.Wrap(errors.Transient, "failed to insert edge", err)
	}
	return res.LastInsertId()
}

// SymbolIDsForCallEdgesAtVersion returns every symbol id that is a
// source or target of a CALLS edge stamped with graphVersion — the set
// whose fan_in/fan_out need recomputing after a round writes new edges
// (spec §9 fan-in/fan-out design note; see DESIGN.md).
func (db *DB) SymbolIDsForCallEdgesAtVersion(graphVersion int64) ([]int64, error) {
	rows, err := db.Query(
		`SELECT source_symbol_id FROM edges WHERE kind = ? AND graph_version = ? AND source_symbol_id IS NOT NULL
		 UNION
		 SELECT target_symbol_id FROM edges WHERE kind = ? AND graph_version = ? AND target_symbol_id IS NOT NULL`,
		EdgeCalls, graphVersion, EdgeCalls, graphVersion)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to query call-edge symbol ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.Transient, "failed to scan symbol id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAllResolvedEdges returns every edge whose target has been resolved
// to a concrete symbol, for module-to-module edge counting (spec §4.H
// repo_map "inter-module edge counts").
func (db *DB) GetAllResolvedEdges(limit int) ([]Edge, error) {
	if limit <= 0 {
		limit = 100000
	}
	rows, err := db.Query(
		`SELECT id, kind, source_symbol_id, source_file_id, target_symbol_id, target_qualname,
		        evidence, evidence_start_line, evidence_end_line, confidence, graph_version, commit_hash
		 FROM edges WHERE target_symbol_id IS NOT NULL LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to query resolved edges", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ResolveUnresolvedEdgesTx implements spec §4.E step 2: for every edge with
// a non-null target_qualname and null target_symbol_id, attempt (a) exact
// qualname match, then (b) suffix match when exactly one candidate exists.
// Unresolved edges are left as-is; a later reindex or read-time fallback
// reconciles them (spec §7, Resolution is not an error).
func ResolveUnresolvedEdgesTx(tx *sql.Tx, edgeIDs []int64) error {
	for _, id := range edgeIDs {
		var targetQualName string
		if err := tx.QueryRow(`SELECT target_qualname FROM edges WHERE id = ? AND target_symbol_id IS NULL`, id).
			Scan(&targetQualName); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return errors.Wrap(errors.Transient, "failed to read edge for resolution", err)
		}
		if targetQualName == "" {
			continue
		}

		var exactID int64
		err := tx.QueryRow(`SELECT id FROM symbols WHERE qualname = ? AND deleted_version IS NULL LIMIT 1`,
			targetQualName).Scan(&exactID)
		if err == nil {
			if _, err := tx.Exec(`UPDATE edges SET target_symbol_id = ? WHERE id = ?`, exactID, id); err != nil {
				return errors.Wrap(errors.Transient, "failed to resolve edge (exact)", err)
			}
			continue
		}
		if err != sql.ErrNoRows {
			return errors.Wrap(errors.Transient, "failed exact resolution lookup", err)
		}

		rows, err := tx.Query(`SELECT id FROM symbols WHERE qualname LIKE ? AND deleted_version IS NULL LIMIT 2`,
			"%"+targetQualName)
		if err != nil {
			return errors.Wrap(errors.Transient, "failed suffix resolution lookup", err)
		}
		var candidates []int64
		for rows.Next() {
			var cid int64
			if err := rows.Scan(&cid); err != nil {
				rows.Close()
				return errors.Wrap(errors.Transient, "failed to scan suffix candidate", err)
			}
			candidates = append(candidates, cid)
		}
		rows.Close()
		if len(candidates) == 1 {
			if _, err := tx.Exec(`UPDATE edges SET target_symbol_id = ? WHERE id = ?`, candidates[0], id); err != nil {
				return errors.Wrap(errors.Transient, "failed to resolve edge (suffix)", err)
			}
		}
		// else: 0 or >1 candidates, leave unresolved (spec §4.E step 2c).
	}
	return nil
}

// GetUnresolvedEdgeIDsTx returns ids of edges still missing target_symbol_id,
// scoped to edges sourced from the given file ids (used after a batch
// write to run the resolution pass only over freshly inserted edges).
func GetUnresolvedEdgeIDsTx(tx *sql.Tx, fileIDs []int64) ([]int64, error) {
	var ids []int64
	for _, fid := range fileIDs {
		rows, err := tx.Query(
			`SELECT id FROM edges WHERE source_file_id = ? AND target_symbol_id IS NULL AND target_qualname IS NOT NULL`,
			fid)
		if err != nil {
			return nil, errors.Wrap(errors.Transient, "failed to list unresolved edges", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, errors.Wrap(errors.Transient, "failed to scan unresolved edge id", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
	}
	return ids, nil
}

// Direction selects which side of an edge a navigation query follows.
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
	Both     Direction = "both"
)

// GetEdgesForSymbol returns edges touching symbolID in the given direction,
// optionally filtered by kind, for neighbors()/references() (spec §4.H).
func (db *DB) GetEdgesForSymbol(symbolID int64, dir Direction, kinds []EdgeKind, limit int) ([]Edge, error) {
	if limit <= 0 {
		limit = 100
	}
	var query string
	args := []interface{}{symbolID}
	switch dir {
	case Outgoing:
		query = `SELECT id, kind, source_symbol_id, source_file_id, target_symbol_id, target_qualname,
		        evidence, evidence_start_line, evidence_end_line, confidence, graph_version, commit_hash
		 FROM edges WHERE source_symbol_id = ?`
	case Incoming:
		query = `SELECT id, kind, source_symbol_id, source_file_id, target_symbol_id, target_qualname,
		        evidence, evidence_start_line, evidence_end_line, confidence, graph_version, commit_hash
		 FROM edges WHERE target_symbol_id = ?`
	default:
		query = `SELECT id, kind, source_symbol_id, source_file_id, target_symbol_id, target_qualname,
		        evidence, evidence_start_line, evidence_end_line, confidence, graph_version, commit_hash
		 FROM edges WHERE source_symbol_id = ? OR target_symbol_id = ?`
		args = append(args, symbolID)
	}
	if len(kinds) > 0 {
		query += " AND kind IN (" + placeholders(len(kinds)) + ")"
		for _, k := range kinds {
			args = append(args, k)
		}
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to query edges for symbol", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// GetIncomingEdgesByQualNameSuffix implements the references() read-time
// fallback: when target_symbol_id is null, match target_qualname by suffix
// (spec §4.H "incoming resolution ... LIKE suffix match as a fallback").
func (db *DB) GetIncomingEdgesByQualNameSuffix(qualname string, limit int) ([]Edge, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, kind, source_symbol_id, source_file_id, target_symbol_id, target_qualname,
		        evidence, evidence_start_line, evidence_end_line, confidence, graph_version, commit_hash
		 FROM edges WHERE target_symbol_id IS NULL AND target_qualname LIKE ? LIMIT ?`,
		"%"+qualname, limit)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to query edges by qualname suffix", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// GetEdgesByKind returns every edge of a single kind, for diagnostics_status
// scanning PARSE_ERROR annotations (spec §7 Parse errors: "emit ... a
// PARSE_ERROR diagnostic edge").
func (db *DB) GetEdgesByKind(kind EdgeKind, limit int) ([]Edge, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := db.Query(
		`SELECT id, kind, source_symbol_id, source_file_id, target_symbol_id, target_qualname,
		        evidence, evidence_start_line, evidence_end_line, confidence, graph_version, commit_hash
		 FROM edges WHERE kind = ? LIMIT ?`, kind, limit)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "failed to query edges by kind", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	var out []Edge
	for rows.Next() {
		var e Edge
		var srcSym, srcFile, tgtSym sql.NullInt64
		var tgtQual, commitHash sql.NullString
		if err := rows.Scan(&e.ID, &e.Kind, &srcSym, &srcFile, &tgtSym, &tgtQual,
			&e.Evidence, &e.EvidenceStartLine, &e.EvidenceEndLine, &e.Confidence, &e.GraphVersion, &commitHash); err != nil {
			return nil, errors.Wrap(errors.Transient, "failed to scan edge row", err)
		}
		if srcSym.Valid {
			e.SourceSymbolID = &srcSym.Int64
		}
		if srcFile.Valid {
			e.SourceFileID = &srcFile.Int64
		}
		if tgtSym.Valid {
			e.TargetSymbolID = &tgtSym.Int64
		}
		e.TargetQualName = tgtQual.String
		e.CommitHash = commitHash.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += "?"
	}
	return s
}
