//go:build cgo

package repomap

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

func TestBuildGroupsFilesByLeafDirectory(t *testing.T) {
	db := indexFixture(t, map[string]string{
		"billing/charge.go": `package billing

func Charge() {}
`,
		"billing/refund.go": `package billing

func Refund() {
	Charge()
}
`,
		"api/handler.go": `package api

func Handle() {}
`,
	})
	defer db.Close()

	m, err := Build(db, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	byPath := map[string]Module{}
	for _, mod := range m.Modules {
		byPath[mod.Path] = mod
	}
	billing, ok := byPath["billing"]
	if !ok {
		t.Fatalf("expected a billing module, got %+v", m.Modules)
	}
	if billing.FileCount != 2 {
		t.Errorf("expected 2 files in billing module, got %d", billing.FileCount)
	}
	if billing.DominantLanguage != "go" {
		t.Errorf("expected dominant language go, got %q", billing.DominantLanguage)
	}
	if len(billing.TopSymbols) == 0 || billing.TopSymbols[0].QualName != "billing.Charge" {
		t.Errorf("expected billing.Charge to rank first by fan-in, got %+v", billing.TopSymbols)
	}
}

func TestBuildRespectsBudgetTrimming(t *testing.T) {
	db := indexFixture(t, map[string]string{
		"a/one.go": `package a

func One() {}
`,
		"b/two.go": `package b

func Two() {}
`,
	})
	defer db.Close()

	full, err := Build(db, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(full.Modules) < 2 {
		t.Fatalf("expected at least 2 modules in the untrimmed digest, got %d", len(full.Modules))
	}

	trimmed, err := Build(db, 1)
	if err != nil {
		t.Fatalf("Build with tiny budget failed: %v", err)
	}
	if !trimmed.Truncated {
		t.Fatalf("expected Truncated=true under a 1-byte budget")
	}
	if len(trimmed.Modules) >= len(full.Modules) {
		t.Fatalf("expected trimming to drop modules, got %d vs untrimmed %d", len(trimmed.Modules), len(full.Modules))
	}
}
