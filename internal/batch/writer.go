// Package batch applies extracted per-file results to the store inside a
// single transaction per flush, grounded on the teacher's
// internal/incremental/updater.go ApplyDelta/applyFileDelta structure:
// delete-or-preserve existing rows, insert fresh ones, all inside one
// db.WithTx call per batch.
package batch

import (
	"database/sql"

	"cgraph/internal/identity"
	"cgraph/internal/lang"
	"cgraph/internal/logging"
	"cgraph/internal/store"
)

// FileResult is one file's extraction output ready to be merged into the
// store, or a deletion marker when Deleted is true.
type FileResult struct {
	Path     string
	Language string
	Digest   string
	Size     int64
	Deleted  bool
	Extracted lang.ExtractedFile
}

// Stats summarizes one WriteBatch call (spec §4.F "PostPass" diagnostics).
type Stats struct {
	FilesWritten     int
	FilesDeleted     int
	SymbolsAdded     int
	SymbolsModified  int
	SymbolsUnchanged int
	SymbolsDeleted   int
	EdgesWritten     int
	EdgesResolved    int
}

// Writer owns the merge-into-store step of the indexing pipeline.
type Writer struct {
	db     *store.DB
	logger *logging.Logger
}

// NewWriter constructs a Writer bound to db.
func NewWriter(db *store.DB, logger *logging.Logger) *Writer {
	return &Writer{db: db, logger: logger}
}

type prepared struct {
	result FileResult
	delta  identity.Delta
	fileID int64
}

// WriteBatch diffs each result against the store's current state and
// commits the whole batch as one transaction bumping the graph version
// exactly once (spec §4.F: batches commit atomically under a single
// graph_version row).
func (w *Writer) WriteBatch(results []FileResult, commitHash string) (Stats, error) {
	var stats Stats
	if len(results) == 0 {
		return stats, nil
	}

	version, err := w.db.NextGraphVersion()
	if err != nil {
		return stats, err
	}

	prepped := make([]prepared, 0, len(results))
	for _, r := range results {
		p := prepared{result: r}
		if !r.Deleted {
			existing, err := w.db.GetFileByPath(r.Path)
			if err != nil {
				return stats, err
			}
			var existingSymbols []store.Symbol
			if existing != nil {
				existingSymbols, err = w.db.GetLiveSymbolsForFile(existing.ID)
				if err != nil {
					return stats, err
				}
			}
			p.delta = identity.Diff(existingSymbols, r.Extracted.Symbols)
		}
		prepped = append(prepped, p)
	}

	var touchedFileIDs []int64
	var touchedSymbolIDs []int64

	err = w.db.WithTx(func(tx *sql.Tx) error {
		for i := range prepped {
			p := &prepped[i]

			if p.result.Deleted {
				existing, err := w.db.GetFileByPath(p.result.Path)
				if err != nil {
					return err
				}
				if existing == nil {
					continue
				}
				syms, err := w.db.GetLiveSymbolsForFile(existing.ID)
				if err != nil {
					return err
				}
				for _, s := range syms {
					if err := store.MarkSymbolDeletedTx(tx, s.ID, version); err != nil {
						return err
					}
					stats.SymbolsDeleted++
				}
				if err := store.DeleteEdgesForFileTx(tx, existing.ID); err != nil {
					return err
				}
				if err := store.MarkFileDeletedTx(tx, existing.ID, version); err != nil {
					return err
				}
				stats.FilesDeleted++
				continue
			}

			fileID, err := store.UpsertFileTx(tx, p.result.Path, p.result.Language, p.result.Digest, p.result.Size, version)
			if err != nil {
				return err
			}
			p.fileID = fileID
			stats.FilesWritten++

			qualToID := make(map[string]int64, len(p.delta.Added)+len(p.delta.Modified)+len(p.delta.Unchanged))

			for _, a := range p.delta.Added {
				sym := &store.Symbol{
					StableID: a.StableID(), FileID: fileID, Kind: a.Kind, Name: a.Name, QualName: a.QualName,
					Signature: a.Signature, StartLine: a.StartLine, EndLine: a.EndLine,
					StartCol: a.StartCol, EndCol: a.EndCol, Docstring: a.Docstring,
				}
				id, err := store.InsertSymbolTx(tx, sym, version)
				if err != nil {
					return err
				}
				qualToID[a.QualName] = id
				touchedSymbolIDs = append(touchedSymbolIDs, id)
				stats.SymbolsAdded++
			}
			for _, m := range p.delta.Modified {
				sym := &store.Symbol{
					Signature: m.Fresh.Signature, StartLine: m.Fresh.StartLine, EndLine: m.Fresh.EndLine,
					StartCol: m.Fresh.StartCol, EndCol: m.Fresh.EndCol, Docstring: m.Fresh.Docstring,
				}
				if err := store.UpdateSymbolTx(tx, m.Existing.ID, sym, version); err != nil {
					return err
				}
				qualToID[m.Fresh.QualName] = m.Existing.ID
				touchedSymbolIDs = append(touchedSymbolIDs, m.Existing.ID)
				stats.SymbolsModified++
			}
			for _, u := range p.delta.Unchanged {
				// No row mutation here: deleted_version IS NULL already
				// determines liveness for every store query, and
				// last_seen_version isn't read to gate it, so an
				// untouched symbol stays fully visible. Its edges are
				// still rewritten below and its fan counts still
				// recomputed, since either can change even when the
				// symbol's own span/signature/docstring did not.
				qualToID[u.QualName] = u.ID
				touchedSymbolIDs = append(touchedSymbolIDs, u.ID)
				stats.SymbolsUnchanged++
			}
			for _, d := range p.delta.Deleted {
				if err := store.MarkSymbolDeletedTx(tx, d.ID, version); err != nil {
					return err
				}
				stats.SymbolsDeleted++
			}

			if err := store.DeleteEdgesForFileTx(tx, fileID); err != nil {
				return err
			}
			for _, e := range p.result.Extracted.Edges {
				edge := &store.Edge{
					Kind: e.Kind, SourceFileID: &fileID, TargetQualName: e.TargetQualName,
					Evidence: e.Evidence, EvidenceStartLine: e.EvidenceStartLine, EvidenceEndLine: e.EvidenceEndLine,
					Confidence: e.Confidence, GraphVersion: version, CommitHash: commitHash,
				}
				if e.SourceQualName != "" {
					if id, ok := qualToID[e.SourceQualName]; ok {
						edge.SourceSymbolID = &id
					}
				}
				if id, ok := qualToID[e.TargetQualName]; ok {
					edge.TargetSymbolID = &id
				}
				if _, err := store.InsertEdgeTx(tx, edge); err != nil {
					return err
				}
				stats.EdgesWritten++
			}
			touchedFileIDs = append(touchedFileIDs, fileID)
		}

		unresolved, err := store.GetUnresolvedEdgeIDsTx(tx, touchedFileIDs)
		if err != nil {
			return err
		}
		if err := store.ResolveUnresolvedEdgesTx(tx, unresolved); err != nil {
			return err
		}
		stats.EdgesResolved = len(unresolved)

		if len(touchedSymbolIDs) > 0 {
			if err := store.RecomputeFanCountsTx(tx, touchedSymbolIDs); err != nil {
				return err
			}
		}

		return store.CommitVersion(tx, version, commitHash)
	})
	if err != nil {
		return stats, err
	}

	w.logger.Info("batch written", map[string]interface{}{
		"version": version, "files": stats.FilesWritten, "deleted": stats.FilesDeleted,
		"symbols_added": stats.SymbolsAdded, "symbols_modified": stats.SymbolsModified,
		"edges_written": stats.EdgesWritten, "edges_resolved": stats.EdgesResolved,
	})
	return stats, nil
}
