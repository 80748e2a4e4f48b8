//go:build cgo

package scipexport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

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

func TestBuildEmitsOneDocumentPerFileWithCallRelationships(t *testing.T) {
	db := indexFixture(t, map[string]string{
		"main.go": `package main

func main() {
	helper()
}

func helper() {}
`,
	})
	defer db.Close()

	version, err := db.CurrentGraphVersion()
	if err != nil {
		t.Fatalf("CurrentGraphVersion failed: %v", err)
	}

	idx, err := Build(db, version, "/repo")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if idx.Metadata == nil || idx.Metadata.ProjectRoot != "/repo" {
		t.Fatalf("expected project root set on metadata, got %+v", idx.Metadata)
	}
	if len(idx.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(idx.Documents))
	}

	doc := idx.Documents[0]
	if doc.RelativePath != "main.go" {
		t.Fatalf("expected main.go, got %q", doc.RelativePath)
	}

	var mainSym *scippb.SymbolInformation
	for _, sym := range doc.Symbols {
		if sym.DisplayName == "main" {
			mainSym = sym
		}
	}
	if mainSym == nil {
		t.Fatalf("expected a symbol named main, got %+v", doc.Symbols)
	}
	if len(mainSym.Relationships) == 0 {
		t.Fatalf("expected main to have a CALLS relationship to helper")
	}
}

func TestExportWritesAValidProtobufFile(t *testing.T) {
	db := indexFixture(t, map[string]string{
		"main.go": `package main

func main() {}
`,
	})
	defer db.Close()

	version, err := db.CurrentGraphVersion()
	if err != nil {
		t.Fatalf("CurrentGraphVersion failed: %v", err)
	}

	out := filepath.Join(t.TempDir(), "index.scip")
	if err := Export(db, out, version, "/repo"); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read exported index: %v", err)
	}
	var idx scippb.Index
	if err := proto.Unmarshal(data, &idx); err != nil {
		t.Fatalf("failed to parse exported index: %v", err)
	}
	if len(idx.Documents) != 1 {
		t.Fatalf("expected 1 document in round-tripped index, got %d", len(idx.Documents))
	}
}
