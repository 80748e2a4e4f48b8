package batch

import (
	"testing"

	"cgraph/internal/identity"
	"cgraph/internal/lang"
	"cgraph/internal/logging"
	"cgraph/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(dir, 4, logging.New(logging.Config{Level: logging.Error}, nil))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWriteBatchInsertsFileSymbolsAndEdges(t *testing.T) {
	db := openTestDB(t)
	w := NewWriter(db, logging.New(logging.Config{Level: logging.Error}, nil))

	result := FileResult{
		Path: "pkg/a.go", Language: "go", Digest: "d1", Size: 10,
		Extracted: lang.ExtractedFile{
			Symbols: []identity.ExtractedSymbol{
				{Kind: store.KindModule, Name: "pkg.a", QualName: "pkg.a", StartLine: 1, EndLine: 20},
				{Kind: store.KindFunction, Name: "Foo", QualName: "pkg.a.Foo", StartLine: 2, EndLine: 5},
				{Kind: store.KindFunction, Name: "Bar", QualName: "pkg.a.Bar", StartLine: 6, EndLine: 9},
			},
			Edges: []lang.ExtractedEdge{
				{Kind: store.EdgeContains, SourceQualName: "pkg.a", TargetQualName: "pkg.a.Foo", Confidence: 1.0},
				{Kind: store.EdgeContains, SourceQualName: "pkg.a", TargetQualName: "pkg.a.Bar", Confidence: 1.0},
				{Kind: store.EdgeCalls, SourceQualName: "pkg.a.Foo", TargetQualName: "pkg.a.Bar", Confidence: 0.8},
			},
		},
	}

	stats, err := w.WriteBatch([]FileResult{result}, "")
	if err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}
	if stats.FilesWritten != 1 || stats.SymbolsAdded != 3 || stats.EdgesWritten != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	foo, err := db.GetSymbolByQualName("pkg.a.Foo")
	if err != nil || foo == nil {
		t.Fatalf("expected Foo to be written, err=%v", err)
	}
	bar, err := db.GetSymbolByQualName("pkg.a.Bar")
	if err != nil || bar == nil {
		t.Fatalf("expected Bar to be written, err=%v", err)
	}
	if bar.FanIn != 1 {
		t.Fatalf("expected Bar fan_in=1 after CALLS resolution, got %d", bar.FanIn)
	}
	if foo.FanOut != 1 {
		t.Fatalf("expected Foo fan_out=1, got %d", foo.FanOut)
	}
}

func TestWriteBatchPreservesStableIDAcrossLineShift(t *testing.T) {
	db := openTestDB(t)
	w := NewWriter(db, logging.New(logging.Config{Level: logging.Error}, nil))

	mk := func(startLine int) FileResult {
		return FileResult{
			Path: "pkg/b.go", Language: "go", Digest: "d", Size: 5,
			Extracted: lang.ExtractedFile{Symbols: []identity.ExtractedSymbol{
				{Kind: store.KindFunction, Name: "Foo", QualName: "pkg.b.Foo", StartLine: startLine, EndLine: startLine + 2},
			}},
		}
	}

	if _, err := w.WriteBatch([]FileResult{mk(2)}, ""); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	before, err := db.GetSymbolByQualName("pkg.b.Foo")
	if err != nil || before == nil {
		t.Fatalf("expected symbol present, err=%v", err)
	}

	if _, err := w.WriteBatch([]FileResult{mk(9)}, ""); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	after, err := db.GetSymbolByQualName("pkg.b.Foo")
	if err != nil || after == nil {
		t.Fatalf("expected symbol still present, err=%v", err)
	}
	if after.ID != before.ID || after.StableID != before.StableID {
		t.Fatalf("expected same row updated in place, before=%+v after=%+v", before, after)
	}
	if after.StartLine != 9 {
		t.Fatalf("expected start_line updated to 9, got %d", after.StartLine)
	}
}

func TestWriteBatchLeavesUnchangedSymbolUntouched(t *testing.T) {
	db := openTestDB(t)
	w := NewWriter(db, logging.New(logging.Config{Level: logging.Error}, nil))

	result := FileResult{
		Path: "pkg/d.go", Language: "go", Digest: "d1", Size: 5,
		Extracted: lang.ExtractedFile{Symbols: []identity.ExtractedSymbol{
			{Kind: store.KindFunction, Name: "Stable", QualName: "pkg.d.Stable", StartLine: 1, EndLine: 3},
		}},
	}
	if _, err := w.WriteBatch([]FileResult{result}, ""); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	before, err := db.GetSymbolByQualName("pkg.d.Stable")
	if err != nil || before == nil {
		t.Fatalf("expected symbol present, err=%v", err)
	}

	// Only the file digest changes: nothing about the symbol itself
	// differs, so identity.Diff reports it Unchanged.
	result.Digest = "d2"
	stats, err := w.WriteBatch([]FileResult{result}, "")
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if stats.SymbolsUnchanged != 1 || stats.SymbolsAdded != 0 || stats.SymbolsModified != 0 {
		t.Fatalf("expected the symbol classified Unchanged, got %+v", stats)
	}

	after, err := db.GetSymbolByQualName("pkg.d.Stable")
	if err != nil || after == nil {
		t.Fatalf("expected symbol still present, err=%v", err)
	}
	if after.LastSeenVersion != before.LastSeenVersion {
		t.Fatalf("expected last_seen_version left untouched for an unchanged symbol, before=%d after=%d",
			before.LastSeenVersion, after.LastSeenVersion)
	}
}

func TestWriteBatchFileDeletionRetiresSymbols(t *testing.T) {
	db := openTestDB(t)
	w := NewWriter(db, logging.New(logging.Config{Level: logging.Error}, nil))

	add := FileResult{
		Path: "pkg/c.go", Language: "go", Digest: "d", Size: 5,
		Extracted: lang.ExtractedFile{Symbols: []identity.ExtractedSymbol{
			{Kind: store.KindFunction, Name: "Gone", QualName: "pkg.c.Gone", StartLine: 1, EndLine: 2},
		}},
	}
	if _, err := w.WriteBatch([]FileResult{add}, ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	del := FileResult{Path: "pkg/c.go", Deleted: true}
	stats, err := w.WriteBatch([]FileResult{del}, "")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if stats.FilesDeleted != 1 || stats.SymbolsDeleted != 1 {
		t.Fatalf("unexpected delete stats: %+v", stats)
	}

	sym, err := db.GetSymbolByQualName("pkg.c.Gone")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if sym != nil {
		t.Fatalf("expected symbol no longer live after file deletion")
	}
}
