// Package orchestrator owns the indexing state machine
// (Idle -> Scanning -> Extracting -> Writing -> PostPass -> Committed),
// grounded on the teacher's internal/incremental/indexer.go phase sequence
// and internal/jobs/job.go for round identifiers (github.com/google/uuid).
package orchestrator

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"cgraph/internal/batch"
	"cgraph/internal/config"
	"cgraph/internal/errors"
	"cgraph/internal/lang"
	"cgraph/internal/logging"
	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

// State is one node of the indexer's linear state machine (spec §4.F).
type State string

const (
	Idle       State = "idle"
	Scanning   State = "scanning"
	Extracting State = "extracting"
	Writing    State = "writing"
	PostPass   State = "post_pass"
	Committed  State = "committed"
	Failed     State = "failed"
)

// RunResult summarizes one completed indexing round.
type RunResult struct {
	RoundID      string
	State        State
	Stats        batch.Stats
	PostPassEdges int
	Err          error
	Duration     time.Duration
}

// Orchestrator drives one indexing round at a time over a repo.
type Orchestrator struct {
	repoRoot string
	db       *store.DB
	registry *lang.Registry
	writer   *batch.Writer
	cfg      config.IndexingConfig
	logger   *logging.Logger

	mu    sync.Mutex
	state State

	manifestMu      sync.Mutex
	manifestCache   map[string]*lang.ManifestInfo
	manifestChecked map[string]bool
}

// New constructs an Orchestrator bound to one repo root and store.
func New(repoRoot string, db *store.DB, registry *lang.Registry, cfg config.IndexingConfig, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		repoRoot: repoRoot, db: db, registry: registry,
		writer: batch.NewWriter(db, logger), cfg: cfg, logger: logger, state: Idle,
		manifestCache: make(map[string]*lang.ManifestInfo), manifestChecked: make(map[string]bool),
	}
}

// State reports the orchestrator's current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// FullReindex scans the entire repo under ignores and indexes every file,
// per spec §4.F "full reindex vs. incremental: both use the same machinery".
func (o *Orchestrator) FullReindex(ctx context.Context, ignores *scanner.IgnoreSet) (RunResult, error) {
	start := time.Now()
	roundID := uuid.New().String()
	o.logger.Info("starting full reindex", map[string]interface{}{"round": roundID})

	o.setState(Scanning)
	sc := scanner.New(o.repoRoot, ignores, scanner.Config{LargeFileSkipMB: o.cfg.LargeFileSkipMB}, o.logger)
	entries, err := sc.Scan()
	if err != nil {
		o.setState(Failed)
		return RunResult{RoundID: roundID, State: Failed, Err: err, Duration: time.Since(start)}, err
	}

	return o.indexEntries(ctx, roundID, entries, nil, start)
}

// IncrementalReindex indexes only the given changed entries, skipping the
// scanner (spec §4.F "incremental indexing invokes the orchestrator with
// only the changed file set"). deletedPaths are files known to be removed.
func (o *Orchestrator) IncrementalReindex(ctx context.Context, entries []scanner.FileEntry, deletedPaths []string) (RunResult, error) {
	start := time.Now()
	roundID := uuid.New().String()
	o.logger.Info("starting incremental reindex", map[string]interface{}{
		"round": roundID, "changed": len(entries), "deleted": len(deletedPaths),
	})
	return o.indexEntries(ctx, roundID, entries, deletedPaths, start)
}

func (o *Orchestrator) indexEntries(ctx context.Context, roundID string, entries []scanner.FileEntry, deletedPaths []string, start time.Time) (RunResult, error) {
	o.setState(Extracting)
	results, sources, err := o.extractPooled(ctx, entries)
	if err != nil {
		o.setState(Failed)
		return RunResult{RoundID: roundID, State: Failed, Err: err, Duration: time.Since(start)}, err
	}
	for _, p := range deletedPaths {
		results = append(results, batch.FileResult{Path: p, Deleted: true})
	}

	o.setState(Writing)
	stats, err := o.writer.WriteBatch(results, "")
	if err != nil {
		o.setState(Failed)
		wrapped := errors.Wrap(errors.Internal, "batch write failed", err)
		return RunResult{RoundID: roundID, State: Failed, Err: wrapped, Duration: time.Since(start)}, wrapped
	}

	if err := o.recomputeFanCounts(); err != nil {
		o.logger.Warn("fan-in/fan-out recompute failed, counts may lag", map[string]interface{}{"error": err.Error()})
	}

	o.setState(PostPass)
	postPassEdges, err := o.runPostPass(results, sources)
	if err != nil {
		o.logger.Warn("post pass failed, committing intra-file graph anyway", map[string]interface{}{"error": err.Error()})
	}

	o.setState(Committed)
	o.logger.Info("indexing round committed", map[string]interface{}{
		"round": roundID, "files": stats.FilesWritten, "post_pass_edges": postPassEdges,
	})
	return RunResult{RoundID: roundID, State: Committed, Stats: stats, PostPassEdges: postPassEdges, Duration: time.Since(start)}, nil
}

// extractPooled runs extraction workers over entries concurrently — pool
// size is capped at GOMAXPROCS, spec §4.F "Extracting is pool-parallel". It
// also returns each file's raw source, kept only long enough for PostPass's
// textual detectors to run.
func (o *Orchestrator) extractPooled(ctx context.Context, entries []scanner.FileEntry) ([]batch.FileResult, map[string][]byte, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(entries) {
		workers = len(entries)
	}
	if workers < 1 {
		workers = 1
	}

	type extraction struct {
		result batch.FileResult
		source []byte
	}

	jobs := make(chan scanner.FileEntry)
	out := make(chan extraction, len(entries))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				r, src := o.extractOne(entry)
				out <- extraction{result: r, source: src}
			}
		}()
	}

	go func() {
		for _, e := range entries {
			jobs <- e
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]batch.FileResult, 0, len(entries))
	sources := make(map[string][]byte, len(entries))
	for r := range out {
		results = append(results, r.result)
		if r.source != nil {
			sources[r.result.Path] = r.source
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(errors.Internal, "extraction cancelled", err)
	}
	return results, sources, nil
}

// recomputeFanCounts refreshes fan_in/fan_out for every symbol touched by
// a CALLS edge written in the round just committed, so analyze_impact and
// analyze_diff read pre-aggregated counts instead of counting at query
// time (spec §9 fan-in/fan-out design note; see DESIGN.md).
func (o *Orchestrator) recomputeFanCounts() error {
	version, err := o.db.CurrentGraphVersion()
	if err != nil {
		return err
	}
	ids, err := o.db.SymbolIDsForCallEdgesAtVersion(version)
	if err != nil || len(ids) == 0 {
		return err
	}
	return o.db.WithTx(func(tx *sql.Tx) error {
		return store.RecomputeFanCountsTx(tx, ids)
	})
}

func (o *Orchestrator) extractOne(entry scanner.FileEntry) (batch.FileResult, []byte) {
	fileDir := filepath.ToSlash(filepath.Dir(entry.Path))
	modulePath := lang.QualifyModulePath(o.manifestsAlongPath(fileDir), modulePathFor(entry.Path), fileDir)

	data, err := readFile(o.repoRoot, entry.Path)
	if err != nil {
		o.logger.Warn("failed to read file for extraction", map[string]interface{}{"path": entry.Path, "error": err.Error()})
		return batch.FileResult{Path: entry.Path, Language: string(entry.Language), Digest: entry.Digest, Size: entry.Size,
			Extracted: lang.Fallback(modulePath, nil)}, nil
	}
	extracted := o.registry.ExtractFile(entry, data, modulePath)
	return batch.FileResult{Path: entry.Path, Language: string(entry.Language), Digest: entry.Digest, Size: entry.Size, Extracted: extracted}, data
}

// manifestsAlongPath returns every Cargo.toml/pyproject.toml manifest found
// walking from fileDir up to the repo root, caching each directory's lookup
// for the lifetime of the Orchestrator (spec §3 qualname construction for
// Rust/Python modules via internal/lang.QualifyModulePath).
func (o *Orchestrator) manifestsAlongPath(fileDir string) map[string]*lang.ManifestInfo {
	found := make(map[string]*lang.ManifestInfo)
	dir := fileDir
	for {
		if info := o.manifestFor(dir); info != nil {
			found[dir] = info
		}
		if dir == "." || dir == "" {
			break
		}
		parent := filepath.ToSlash(filepath.Dir(dir))
		if parent == dir {
			break
		}
		dir = parent
	}
	return found
}

func (o *Orchestrator) manifestFor(dir string) *lang.ManifestInfo {
	o.manifestMu.Lock()
	defer o.manifestMu.Unlock()
	if o.manifestChecked[dir] {
		return o.manifestCache[dir]
	}
	info := lang.DetectManifest(filepath.Join(o.repoRoot, dir))
	o.manifestCache[dir] = info
	o.manifestChecked[dir] = true
	return info
}
