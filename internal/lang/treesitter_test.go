//go:build cgo

package lang

import (
	"testing"

	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

func TestExtractGoFile(t *testing.T) {
	source := []byte(`package main

type Handler struct {
	db *Database
}

func NewHandler(db *Database) *Handler {
	return &Handler{db: db}
}

func (h *Handler) Get(id string) (*Item, error) {
	return h.db.Find(id)
}
`)
	r := NewRegistry()
	ex := r.For(scanner.Go)
	if ex == nil {
		t.Fatal("expected a Go extractor to be registered")
	}
	result, err := ex.Extract(source, "pkg.main")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	names := map[string]store.SymbolKind{}
	for _, s := range result.Symbols {
		names[s.Name] = s.Kind
	}
	if names["Handler"] != store.KindStruct {
		t.Errorf("expected Handler to be a struct, got %+v", names)
	}
	if names["NewHandler"] != store.KindFunction {
		t.Errorf("expected NewHandler to be a function, got %+v", names)
	}
	if names["Get"] != store.KindMethod {
		t.Errorf("expected Get to be a method, got %+v", names)
	}

	var sawCall bool
	for _, e := range result.Edges {
		if e.Kind == store.EdgeCalls && e.TargetQualName == "Find" {
			sawCall = true
		}
	}
	if !sawCall {
		t.Errorf("expected a CALLS edge targeting Find, got %+v", result.Edges)
	}
}

func TestExtractPythonFile(t *testing.T) {
	source := []byte(`import os

class Widget:
    def render(self):
        return os.getcwd()

def helper():
    pass
`)
	r := NewRegistry()
	ex := r.For(scanner.Python)
	result, err := ex.Extract(source, "pkg.mod")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	var sawClass, sawMethod, sawFunc bool
	for _, s := range result.Symbols {
		switch {
		case s.Name == "Widget" && s.Kind == store.KindClass:
			sawClass = true
		case s.Name == "render" && s.Kind == store.KindMethod:
			sawMethod = true
		case s.Name == "helper" && s.Kind == store.KindFunction:
			sawFunc = true
		}
	}
	if !sawClass || !sawMethod || !sawFunc {
		t.Errorf("missing expected symbols, got %+v", result.Symbols)
	}
}

func TestFallbackOnUnsupportedLanguage(t *testing.T) {
	r := NewRegistry()
	entry := scanner.FileEntry{Path: "x.rb", Language: scanner.Unknown}
	result := r.ExtractFile(entry, []byte("puts 1\n"), "pkg.x")
	if len(result.Symbols) != 1 || result.Symbols[0].QualName != "pkg.x" {
		t.Fatalf("expected a single module-level fallback symbol, got %+v", result.Symbols)
	}
	if len(result.Edges) != 1 || result.Edges[0].Kind != store.EdgeParseError {
		t.Fatalf("expected a PARSE_ERROR edge, got %+v", result.Edges)
	}
}
