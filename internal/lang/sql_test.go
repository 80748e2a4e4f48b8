//go:build cgo

package lang

import (
	"testing"

	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

func TestExtractSQLTableAndProcedure(t *testing.T) {
	source := []byte(`CREATE TABLE users (
    id INTEGER PRIMARY KEY,
    name TEXT
);

CREATE PROCEDURE sp_trigger_notify()
BEGIN
    SELECT 1;
END;
`)
	r := NewRegistry()
	ex := r.For(scanner.SQL)
	if ex == nil {
		t.Fatal("expected a SQL extractor to be registered")
	}
	result, err := ex.Extract(source, "db.schema")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	names := map[string]store.SymbolKind{}
	for _, s := range result.Symbols {
		names[s.Name] = s.Kind
	}
	if names["users"] != store.KindSQLTable {
		t.Errorf("expected users to be a KindSQLTable, got %+v", names)
	}
	if names["sp_trigger_notify"] != store.KindSQLProc {
		t.Errorf("expected sp_trigger_notify to be a KindSQLProc, got %+v", names)
	}

	var sawContainsTable, sawContainsProc bool
	for _, e := range result.Edges {
		if e.Kind != store.EdgeContains || e.SourceQualName != "db.schema" {
			continue
		}
		switch e.TargetQualName {
		case "db.schema.users":
			sawContainsTable = true
		case "db.schema.sp_trigger_notify":
			sawContainsProc = true
		}
	}
	if !sawContainsTable || !sawContainsProc {
		t.Errorf("expected CONTAINS edges from db.schema to both objects, got %+v", result.Edges)
	}
}

func TestSQLExtractorRegisteredForExtension(t *testing.T) {
	r := NewRegistry()
	ex := r.For(scanner.SQL)
	if ex == nil {
		t.Fatal("expected a SQL extractor")
	}
	exts := ex.SupportedExtensions()
	if len(exts) != 1 || exts[0] != ".sql" {
		t.Errorf("expected [.sql], got %+v", exts)
	}
}
