// Package lang holds the per-language AST extractors (spec §4.C). Each
// extractor is a pure function (source_bytes, module_path) -> ExtractedFile,
// grounded on the teacher's internal/symbols/treesitter.go and
// internal/complexity/treesitter.go (github.com/smacker/go-tree-sitter).
package lang

import (
	"cgraph/internal/identity"
	"cgraph/internal/store"
)

// ExtractedEdge is an edge emitted by an extractor before the edge has a
// source_symbol_id (the batch writer fills in file/symbol ids on write).
type ExtractedEdge struct {
	Kind              store.EdgeKind
	SourceQualName    string // "" means file-level (CONTAINS root, IMPORTS)
	TargetQualName    string
	Evidence          string
	EvidenceStartLine int
	EvidenceEndLine   int
	Confidence        float64
}

// FileMetrics mirrors spec §4.C "File metrics".
type FileMetrics struct {
	LinesOfCode       int
	CyclomaticTotal   int
	SymbolTokenVector map[string]int // coarse token histogram for duplicate detection
}

// ExtractedFile is an extractor's complete output for one file (spec §4.C).
type ExtractedFile struct {
	Symbols []identity.ExtractedSymbol
	Edges   []ExtractedEdge
	Metrics FileMetrics
}

// Extractor is the plugin-style capability set every language conforms to
// (spec §9 "Plugin-style extractors"): supported_extensions() + extract().
type Extractor interface {
	SupportedExtensions() []string
	Extract(source []byte, modulePath string) (ExtractedFile, error)
}

// Fallback produces the single module-level symbol + PARSE_ERROR edge used
// when a parser fails (spec §4.C, last paragraph).
func Fallback(modulePath string, source []byte) ExtractedFile {
	lines := countLines(source)
	return ExtractedFile{
		Symbols: []identity.ExtractedSymbol{{
			Kind:      store.KindModule,
			Name:      modulePath,
			QualName:  modulePath,
			Signature: "",
			StartLine: 1,
			EndLine:   lines,
		}},
		Edges: []ExtractedEdge{{
			Kind:              store.EdgeParseError,
			SourceQualName:    modulePath,
			Evidence:          "parser failed on this file",
			EvidenceStartLine: 1,
			EvidenceEndLine:   lines,
			Confidence:        1.0,
		}},
		Metrics: FileMetrics{LinesOfCode: lines},
	}
}

func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := 1
	for _, b := range source {
		if b == '\n' {
			n++
		}
	}
	return n
}
