package query

import (
	"context"
	"time"

	"cgraph/internal/scipexport"
)

// ExportSCIPResult is the response for export_scip.
type ExportSCIPResult struct {
	Path         string      `json:"path"`
	GraphVersion int64       `json:"graph_version"`
	Provenance   *Provenance `json:"provenance"`
}

// ExportSCIP serializes the graph at its current version to a SCIP index
// file, the interop feature the teacher's SCIP backend supplements the
// dispatcher's method surface with.
func (e *Engine) ExportSCIP(ctx context.Context, outPath string) (*ExportSCIPResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}

	if err := scipexport.Export(e.db, outPath, state.GraphVersion, e.repoRoot); err != nil {
		return nil, err
	}

	return &ExportSCIPResult{
		Path:         outPath,
		GraphVersion: state.GraphVersion,
		Provenance:   e.buildProvenance(state, start, nil),
	}, nil
}
