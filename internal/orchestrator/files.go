package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
)

func readFile(repoRoot, relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(repoRoot, relPath))
}

// modulePathFor derives a dotted module qualname from a repo-relative path,
// e.g. "internal/store/db.go" -> "internal.store.db". The Orchestrator
// qualifies this with any enclosing Cargo.toml/pyproject.toml package prefix
// via internal/lang.QualifyModulePath before extraction runs.
func modulePathFor(relPath string) string {
	ext := filepath.Ext(relPath)
	trimmed := strings.TrimSuffix(relPath, ext)
	trimmed = filepath.ToSlash(trimmed)
	return strings.ReplaceAll(trimmed, "/", ".")
}
