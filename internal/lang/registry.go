//go:build cgo

package lang

import "cgraph/internal/scanner"

// Registry maps a detected Language to its Extractor (spec §4.C "Plugin-style
// extractors" / §9 open question, resolved in favor of a static registry
// rather than dynamic plugin loading — this is a local embedded server, not
// a multi-tenant host, so build-time registration is sufficient).
type Registry struct {
	extractors map[scanner.Language]Extractor
}

// NewRegistry builds the registry of supported extractors.
func NewRegistry() *Registry {
	r := &Registry{extractors: map[scanner.Language]Extractor{}}
	exts := map[scanner.Language][]string{
		scanner.Go:         {".go"},
		scanner.Python:     {".py", ".pyw"},
		scanner.JavaScript: {".js", ".mjs", ".cjs", ".jsx"},
		scanner.TypeScript: {".ts", ".mts", ".cts"},
		scanner.TSX:        {".tsx"},
		scanner.Java:       {".java"},
		scanner.Rust:       {".rs"},
	}
	for l, e := range exts {
		r.extractors[l] = &treeSitterExtractor{lang: l, extensions: e}
	}
	r.extractors[scanner.SQL] = &sqlExtractor{extensions: []string{".sql"}}
	r.extractors[scanner.Proto] = &protoExtractor{extensions: []string{".proto"}}
	return r
}

// For returns the extractor for a language, or nil if unsupported — callers
// fall back to Fallback() in that case.
func (r *Registry) For(l scanner.Language) Extractor {
	return r.extractors[l]
}

// ExtractFile runs the appropriate extractor for entry, or the
// parse-failure fallback if the language is unsupported or parsing fails.
func (r *Registry) ExtractFile(entry scanner.FileEntry, source []byte, modulePath string) ExtractedFile {
	ex := r.For(entry.Language)
	if ex == nil {
		return Fallback(modulePath, source)
	}
	result, err := ex.Extract(source, modulePath)
	if err != nil {
		return Fallback(modulePath, source)
	}
	return result
}
