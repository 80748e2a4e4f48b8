package query

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"cgraph/internal/store"
)

// IndexStatusResult is the response for index_status.
type IndexStatusResult struct {
	GraphVersion int64       `json:"graph_version"`
	Dirty        bool        `json:"dirty"`
	Provenance   *Provenance `json:"provenance"`
}

// IndexStatus implements index_status: the current graph version and
// working-tree dirtiness (spec §6 "Index lifecycle").
func (e *Engine) IndexStatus(ctx context.Context) (*IndexStatusResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}
	return &IndexStatusResult{
		GraphVersion: state.GraphVersion,
		Dirty:        state.Dirty,
		Provenance:   e.buildProvenance(state, start, nil),
	}, nil
}

// ChangedFilesResult is the response for changed_files.
type ChangedFilesResult struct {
	Paths      []string    `json:"paths"`
	Provenance *Provenance `json:"provenance"`
}

// ChangedFiles implements changed_files: paths that differ from HEAD in
// the working tree, via the same bounded git subprocess pattern
// internal/gitmine uses for log mining.
func (e *Engine) ChangedFiles(ctx context.Context) (*ChangedFilesResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = e.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		paths = append(paths, strings.TrimSpace(line[3:]))
	}

	return &ChangedFilesResult{Paths: paths, Provenance: e.buildProvenance(state, start, nil)}, nil
}

// CoChangesResult is the response for co_changes.
type CoChangesResult struct {
	Partners   []store.CoChangeRecord `json:"partners"`
	Provenance *Provenance            `json:"provenance"`
}

// CoChanges implements co_changes: files that historically change
// alongside path (spec §6 "Index lifecycle"; mined by internal/gitmine
// and stored via store.CoChangeRecord).
func (e *Engine) CoChanges(ctx context.Context, path string, limit int) (*CoChangesResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	partners, err := e.db.GetCoChangePartners(path, limit)
	if err != nil {
		return nil, err
	}

	return &CoChangesResult{Partners: partners, Provenance: e.buildProvenance(state, start, nil)}, nil
}
