// Package scanner walks a repo honoring ignore rules and maps paths to
// languages, producing the (path, language, size, mtime) stream spec §4.B
// describes. Grounded on the teacher's internal/incremental/detector.go
// (skipDirs, isExcluded) and internal/complexity/types.go (LanguageFromExtension).
package scanner

import "strings"

// Language is a closed tag identifying one of the supported extractors.
type Language string

const (
	Go         Language = "go"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Java       Language = "java"
	Rust       Language = "rust"
	SQL        Language = "sql"
	Proto      Language = "proto"
	Unknown    Language = ""
)

// extensionToLanguage is the closed extension-to-language table (spec §4.B).
var extensionToLanguage = map[string]Language{
	".go":  Go,
	".py":  Python, ".pyw": Python,
	".js": JavaScript, ".mjs": JavaScript, ".cjs": JavaScript, ".jsx": JavaScript,
	".ts": TypeScript, ".mts": TypeScript, ".cts": TypeScript,
	".tsx":   TSX,
	".java":  Java,
	".rs":    Rust,
	".sql":   SQL,
	".proto": Proto,
}

// LanguageFromExtension maps a file extension (including the leading dot)
// to a Language, or Unknown if unsupported.
func LanguageFromExtension(ext string) Language {
	return extensionToLanguage[strings.ToLower(ext)]
}

// binaryExtensions are skipped outright without a language-detection attempt.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".exe": true,
	".so": true, ".dylib": true, ".dll": true, ".woff": true, ".woff2": true,
	".ttf": true, ".eot": true, ".wasm": true,
}

// IsBinaryExtension reports whether ext names a known binary file type.
func IsBinaryExtension(ext string) bool {
	return binaryExtensions[strings.ToLower(ext)]
}
