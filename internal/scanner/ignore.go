package scanner

import (
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// skipDirs are always pruned during a walk regardless of ignore files,
// grounded on the teacher's internal/incremental/detector.go skipDirs map.
var skipDirs = map[string]bool{
	".git": true, ".cgraph": true, "vendor": true, "node_modules": true,
	"bin": true, "dist": true, "out": true, ".cache": true,
}

// IgnoreSet evaluates repo-local .gitignore rules and an optional global
// ignore file (spec §6 "Ignore rules"). A nil *IgnoreSet never ignores
// anything (the "disable ignore handling" flag).
type IgnoreSet struct {
	matcher *gitignore.GitIgnore
	root    string
}

// LoadIgnoreSet compiles .gitignore (if present) under root plus an
// optional global ignore file into one matcher.
func LoadIgnoreSet(root string, globalIgnorePath string) (*IgnoreSet, error) {
	var lines []string
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		lines = append(lines, splitLines(string(data))...)
	}
	if globalIgnorePath != "" {
		if data, err := os.ReadFile(globalIgnorePath); err == nil {
			lines = append(lines, splitLines(string(data))...)
		}
	}
	if len(lines) == 0 {
		return &IgnoreSet{root: root}, nil
	}
	m := gitignore.CompileIgnoreLines(lines...)
	return &IgnoreSet{matcher: m, root: root}, nil
}

// Match reports whether relPath (relative to root) is ignored.
func (i *IgnoreSet) Match(relPath string) bool {
	if i == nil || i.matcher == nil {
		return false
	}
	return i.matcher.MatchesPath(relPath)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for idx := 0; idx < len(s); idx++ {
		if s[idx] == '\n' {
			out = append(out, s[start:idx])
			start = idx + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
