//go:build cgo

package flow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cgraph/internal/config"
	"cgraph/internal/lang"
	"cgraph/internal/logging"
	"cgraph/internal/orchestrator"
	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

func indexFixture(t *testing.T, files map[string]string) *store.DB {
	t.Helper()
	repoRoot := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(repoRoot, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	logger := logging.New(logging.Config{Level: logging.Error}, nil)
	db, err := store.Open(repoRoot, 4, logger)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}

	o := orchestrator.New(repoRoot, db, lang.NewRegistry(), config.Default().Indexing, logger)
	ignores, _ := scanner.LoadIgnoreSet(repoRoot, "")
	result, err := o.FullReindex(context.Background(), ignores)
	if err != nil {
		t.Fatalf("FullReindex failed: %v", err)
	}
	if result.State != orchestrator.Committed {
		t.Fatalf("expected Committed state, got %v (err=%v)", result.State, result.Err)
	}
	return db
}

func TestTraceStaysWithinLanguageOnStructuralEdges(t *testing.T) {
	db := indexFixture(t, map[string]string{
		"main.go": `package main

func main() {
	helper()
}

func helper() {}
`,
	})
	defer db.Close()

	seed, err := db.GetSymbolByQualName("main.main")
	if err != nil || seed == nil {
		t.Fatalf("expected main.main symbol, err=%v", err)
	}

	hops, err := Trace(context.Background(), db, seed, Config{Direction: Downstream})
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}

	var found bool
	for _, h := range hops {
		if h.QualName == "main.helper" {
			found = true
			if h.Boundary != "" {
				t.Fatalf("expected no boundary tag for a same-language hop, got %q", h.Boundary)
			}
		}
	}
	if !found {
		t.Fatalf("expected main.helper reached, got %+v", hops)
	}
}

func TestBoundaryTagClassifiesEdgeKinds(t *testing.T) {
	cases := []struct {
		kind       store.EdgeKind
		targetKind store.SymbolKind
		want       string
	}{
		{store.EdgeRPCImpl, store.KindRPCMethod, "rpc"},
		{store.EdgeHTTPCall, store.KindRoute, "http"},
		{store.EdgeChannelPublish, store.KindFunction, "channel"},
		{store.EdgeXRef, store.KindSQLProc, "sql"},
		{store.EdgeXRef, store.KindClass, "xref"},
	}
	for _, c := range cases {
		if got := boundaryTag(c.kind, c.targetKind); got != c.want {
			t.Errorf("boundaryTag(%v, %v) = %q, want %q", c.kind, c.targetKind, got, c.want)
		}
	}
}
