package query

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cgraph/internal/store"
)

// pathSafe reports whether path, once joined against root and
// canonicalized, still lies under root (spec §4.I path containment;
// mirrors internal/scanner's pathSafe).
func pathSafe(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// readFileLines reads a 1-indexed [startLine, endLine] slice of a file
// under repoRoot. A zero startLine/endLine reads the whole file.
func readFileLines(repoRoot, relPath string, startLine, endLine int) (string, error) {
	full := filepath.Join(repoRoot, relPath)
	if !pathSafe(repoRoot, full) {
		return "", fmt.Errorf("path %q escapes repo root", relPath)
	}

	f, err := os.Open(full)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if startLine <= 0 {
		startLine = 1
	}

	var out strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line < startLine {
			continue
		}
		if endLine > 0 && line > endLine {
			break
		}
		out.WriteString(scanner.Text())
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// readSymbolSnippet resolves a symbol's file path and returns the source
// text spanning its declared line range.
func readSymbolSnippet(repoRoot string, db *store.DB, sym store.Symbol) (string, error) {
	path, err := db.FilePathOf(sym.FileID)
	if err != nil {
		return "", err
	}
	return readFileLines(repoRoot, path, sym.StartLine, sym.EndLine)
}
