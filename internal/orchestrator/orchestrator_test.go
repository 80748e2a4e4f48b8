//go:build cgo

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cgraph/internal/config"
	"cgraph/internal/lang"
	"cgraph/internal/logging"
	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

func TestFullReindexCommitsGraph(t *testing.T) {
	repoRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(repoRoot, "main.go"), []byte(`package main

func main() {
	helper()
}

func helper() {}
`), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	logger := logging.New(logging.Config{Level: logging.Error}, nil)
	db, err := store.Open(repoRoot, 4, logger)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer db.Close()

	o := New(repoRoot, db, lang.NewRegistry(), config.Default().Indexing, logger)
	ignores, _ := scanner.LoadIgnoreSet(repoRoot, "")

	result, err := o.FullReindex(context.Background(), ignores)
	if err != nil {
		t.Fatalf("FullReindex failed: %v", err)
	}
	if result.State != Committed {
		t.Fatalf("expected Committed state, got %v (err=%v)", result.State, result.Err)
	}
	if result.Stats.FilesWritten != 1 {
		t.Fatalf("expected 1 file written, got %+v", result.Stats)
	}

	sym, err := db.GetSymbolByQualName("main.main")
	if err != nil || sym == nil {
		t.Fatalf("expected main.main symbol present, err=%v", err)
	}

	version, err := db.CurrentGraphVersion()
	if err != nil || version != 1 {
		t.Fatalf("expected graph version 1 after first commit, got %d (err=%v)", version, err)
	}

	if o.State() != Committed {
		t.Fatalf("expected orchestrator to remain in Committed state, got %v", o.State())
	}
}

func TestIncrementalReindexHandlesDeletion(t *testing.T) {
	repoRoot := t.TempDir()
	filePath := filepath.Join(repoRoot, "a.go")
	if err := os.WriteFile(filePath, []byte("package main\n\nfunc Live() {}\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	logger := logging.New(logging.Config{Level: logging.Error}, nil)
	db, err := store.Open(repoRoot, 4, logger)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer db.Close()

	o := New(repoRoot, db, lang.NewRegistry(), config.Default().Indexing, logger)
	ignores, _ := scanner.LoadIgnoreSet(repoRoot, "")
	if _, err := o.FullReindex(context.Background(), ignores); err != nil {
		t.Fatalf("initial reindex failed: %v", err)
	}

	result, err := o.IncrementalReindex(context.Background(), nil, []string{"a.go"})
	if err != nil {
		t.Fatalf("incremental reindex failed: %v", err)
	}
	if result.Stats.FilesDeleted != 1 {
		t.Fatalf("expected 1 file deleted, got %+v", result.Stats)
	}

	sym, err := db.GetSymbolByQualName("a.Live")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if sym != nil {
		t.Fatalf("expected Live symbol retired after file deletion")
	}
}
