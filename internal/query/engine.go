// Package query is the read-only facade over the store: symbol/text
// search, neighbor/subgraph traversal, budgeted context assembly, and
// wrappers around the impact/diff/flow/repomap analyses. Most responses
// are tagged with the RepoState they were answered from and carry
// provenance; next_hops suggestions are attached by find_symbol,
// open_symbol, neighbors, search_text, analyze_impact, analyze_diff and
// trace_flow only.
package query

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"cgraph/internal/config"
	"cgraph/internal/logging"
	"cgraph/internal/store"
)

// Engine is the central query coordinator, wrapping the store with
// deterministic ordering, provenance, and next_hops metadata.
type Engine struct {
	db       *store.DB
	logger   *logging.Logger
	cfg      *config.Config
	repoRoot string

	stateMu      sync.RWMutex
	cachedState  *RepoState
	stateFetched time.Time
}

// New constructs a query Engine over an already-opened store.
func New(repoRoot string, db *store.DB, cfg *config.Config, logger *logging.Logger) *Engine {
	return &Engine{db: db, logger: logger, cfg: cfg, repoRoot: repoRoot}
}

// RepoState tags a response with the graph version it was answered from
// and whether the working tree has uncommitted changes relative to HEAD
// (spec §5 ordering guarantees: "graph-version advancement provides a
// coarse... boundary").
type RepoState struct {
	GraphVersion int64  `json:"graph_version"`
	HeadCommit   string `json:"head_commit,omitempty"`
	Dirty        bool   `json:"dirty"`
	ComputedAt   string `json:"computed_at"`
}

// GetRepoState returns the current repo state, caching it for 5 seconds
// so a burst of dispatcher calls doesn't repeatedly shell out to git.
func (e *Engine) GetRepoState(ctx context.Context) (*RepoState, error) {
	e.stateMu.RLock()
	if e.cachedState != nil && time.Since(e.stateFetched) < 5*time.Second {
		s := e.cachedState
		e.stateMu.RUnlock()
		return s, nil
	}
	e.stateMu.RUnlock()

	version, err := e.db.CurrentGraphVersion()
	if err != nil {
		return nil, err
	}
	state := &RepoState{
		GraphVersion: version,
		HeadCommit:   headCommit(ctx, e.repoRoot),
		Dirty:        workingTreeDirty(ctx, e.repoRoot),
		ComputedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	e.stateMu.Lock()
	e.cachedState = state
	e.stateFetched = time.Now()
	e.stateMu.Unlock()
	return state, nil
}

func headCommit(ctx context.Context, repoRoot string) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func workingTreeDirty(ctx context.Context, repoRoot string) bool {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return true
	}
	return len(strings.TrimSpace(string(out))) > 0
}

// Hop is a suggested follow-up query, generalizing the teacher's
// "drilldown" concept into the vocabulary spec §4.H/§4.I call next_hops.
type Hop struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
	Reason string                 `json:"reason"`
}

// Provenance describes how a response was produced.
type Provenance struct {
	RepoState       *RepoState `json:"repo_state"`
	QueryDurationMs int64      `json:"query_duration_ms"`
	Warnings        []string   `json:"warnings,omitempty"`
}

func (e *Engine) buildProvenance(state *RepoState, start time.Time, warnings []string) *Provenance {
	return &Provenance{
		RepoState:       state,
		QueryDurationMs: time.Since(start).Milliseconds(),
		Warnings:        warnings,
	}
}
