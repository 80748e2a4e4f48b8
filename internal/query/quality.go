package query

import (
	"context"
	"strings"
	"time"

	"cgraph/internal/store"
)

// DeadSymbolsResult is the response for dead_symbols.
type DeadSymbolsResult struct {
	Symbols    []store.Symbol `json:"symbols"`
	Provenance *Provenance    `json:"provenance"`
}

// DeadSymbols implements dead_symbols: callable symbols with zero fan-in,
// excluding conventional entrypoints (spec §6 "Quality").
func (e *Engine) DeadSymbols(ctx context.Context, limit int) (*DeadSymbolsResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	files, err := e.db.GetAllLiveFiles()
	if err != nil {
		return nil, err
	}

	var dead []store.Symbol
	for _, f := range files {
		symbols, err := e.db.GetLiveSymbolsForFile(f.ID)
		if err != nil {
			continue
		}
		for _, sym := range symbols {
			if len(dead) >= limit {
				break
			}
			if sym.FanIn != 0 || isEntrypointName(sym.Name) {
				continue
			}
			if sym.Kind != store.KindFunction && sym.Kind != store.KindMethod {
				continue
			}
			dead = append(dead, sym)
		}
	}

	return &DeadSymbolsResult{Symbols: dead, Provenance: e.buildProvenance(state, start, nil)}, nil
}

func isEntrypointName(name string) bool {
	switch strings.ToLower(name) {
	case "main", "init", "test", "setup", "teardown":
		return true
	}
	return strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "Benchmark") || strings.HasPrefix(name, "Example")
}

// OrphanTestsResult is the response for orphan_tests.
type OrphanTestsResult struct {
	Symbols    []store.Symbol `json:"symbols"`
	Provenance *Provenance    `json:"provenance"`
}

// OrphanTests implements orphan_tests: symbols in test-looking files that
// make no outgoing calls, so they exercise nothing (spec §6 "Quality").
func (e *Engine) OrphanTests(ctx context.Context, limit int) (*OrphanTestsResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	files, err := e.db.GetAllLiveFiles()
	if err != nil {
		return nil, err
	}

	var orphans []store.Symbol
	for _, f := range files {
		if !looksLikeTestPath(f.Path) {
			continue
		}
		symbols, err := e.db.GetLiveSymbolsForFile(f.ID)
		if err != nil {
			continue
		}
		for _, sym := range symbols {
			if len(orphans) >= limit {
				break
			}
			if sym.Kind != store.KindFunction && sym.Kind != store.KindMethod {
				continue
			}
			if sym.FanOut == 0 {
				orphans = append(orphans, sym)
			}
		}
	}

	return &OrphanTestsResult{Symbols: orphans, Provenance: e.buildProvenance(state, start, nil)}, nil
}

// looksLikeTestPath mirrors internal/impact's test-file heuristic (spec
// §4.H "attach tests ... a symbol counts as a test when its owning file
// path carries a conventional test marker").
func looksLikeTestPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "_test.") ||
		strings.Contains(lower, "test_") ||
		strings.Contains(lower, "/tests/") ||
		strings.Contains(lower, "/test/") ||
		strings.HasSuffix(lower, ".test.ts") ||
		strings.HasSuffix(lower, ".test.js") ||
		strings.HasSuffix(lower, ".spec.ts") ||
		strings.HasSuffix(lower, ".spec.js")
}

// DiagnosticsStatusResult is the response for diagnostics_status.
type DiagnosticsStatusResult struct {
	ParseErrorCount int         `json:"parse_error_count"`
	Files           []string    `json:"files"`
	Provenance      *Provenance `json:"provenance"`
}

// DiagnosticsStatus implements diagnostics_status: a count of PARSE_ERROR
// diagnostic edges from the last commit and the files carrying them (spec §7
// Parse errors), generalizing the teacher's doctor tool.
func (e *Engine) DiagnosticsStatus(ctx context.Context) (*DiagnosticsStatusResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}

	edges, err := e.db.GetEdgesByKind(store.EdgeParseError, 0)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var files []string
	for _, edge := range edges {
		if edge.SourceFileID == nil {
			continue
		}
		path, err := e.db.FilePathOf(*edge.SourceFileID)
		if err != nil || seen[path] {
			continue
		}
		seen[path] = true
		files = append(files, path)
	}

	return &DiagnosticsStatusResult{
		ParseErrorCount: len(edges),
		Files:           files,
		Provenance:      e.buildProvenance(state, start, nil),
	}, nil
}
