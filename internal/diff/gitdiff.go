// Package diff implements change review (spec §4.H analyze_diff): parse
// a unified diff, map changed lines onto live symbols, classify each
// change, and assemble a risk report with an actionable checklist.
// Grounded on the teacher's internal/diff package, which performs the
// same parse/map/risk pipeline against a SCIP index instead of this
// module's own store.
package diff

import (
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"cgraph/internal/errors"
)

// Parse parses a unified diff into per-file, per-hunk changed lines.
func Parse(diffContent string) (*ParsedDiff, error) {
	if strings.TrimSpace(diffContent) == "" {
		return &ParsedDiff{}, nil
	}
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffContent))
	if err != nil {
		return nil, errors.Wrap(errors.Parse, "failed to parse diff", err)
	}

	parsed := &ParsedDiff{Files: make([]ChangedFile, 0, len(fileDiffs))}
	for _, fd := range fileDiffs {
		parsed.Files = append(parsed.Files, parseFileDiff(fd))
	}
	return parsed, nil
}

func parseFileDiff(fd *godiff.FileDiff) ChangedFile {
	cf := ChangedFile{
		OldPath: cleanPath(fd.OrigName),
		NewPath: cleanPath(fd.NewName),
		Hunks:   make([]ChangedHunk, 0, len(fd.Hunks)),
	}
	if fd.OrigName == "/dev/null" || fd.OrigName == "" {
		cf.IsNew = true
		cf.OldPath = ""
	}
	if fd.NewName == "/dev/null" || fd.NewName == "" {
		cf.Deleted = true
		cf.NewPath = ""
	}
	if cf.OldPath != "" && cf.NewPath != "" && cf.OldPath != cf.NewPath {
		cf.Renamed = true
	}
	for _, h := range fd.Hunks {
		cf.Hunks = append(cf.Hunks, parseHunk(h))
	}
	return cf
}

func parseHunk(hunk *godiff.Hunk) ChangedHunk {
	ch := ChangedHunk{
		OldStart:  int(hunk.OrigStartLine),
		OldLines:  int(hunk.OrigLines),
		NewStart:  int(hunk.NewStartLine),
		NewLines:  int(hunk.NewLines),
		AddedText: map[int]string{},
	}
	oldLine := ch.OldStart
	newLine := ch.NewStart

	for _, line := range strings.Split(string(hunk.Body), "\n") {
		if len(line) == 0 {
			oldLine++
			newLine++
			continue
		}
		switch line[0] {
		case '+':
			ch.Added = append(ch.Added, newLine)
			ch.AddedText[newLine] = line[1:]
			newLine++
		case '-':
			ch.Removed = append(ch.Removed, oldLine)
			oldLine++
		case ' ':
			oldLine++
			newLine++
		}
	}
	return ch
}

func cleanPath(path string) string {
	if path == "" || path == "/dev/null" {
		return path
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

// EffectivePath returns the path a changed file should be looked up
// under: the new path, or the old path for a deletion.
func EffectivePath(cf ChangedFile) string {
	if cf.Deleted {
		return cf.OldPath
	}
	return cf.NewPath
}

var skipPrefixes = []string{"vendor/", "node_modules/", ".git/", "testdata/"}
var skipSuffixes = []string{".sum", ".lock", ".min.js", ".min.css", ".map", ".pb.go", "_generated.go", "-lock.json"}

// IsSourceFile filters out vendored, generated, and lockfile paths that
// shouldn't be mapped to symbols or surfaced in a review report.
func IsSourceFile(path string) bool {
	for _, p := range skipPrefixes {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	for _, s := range skipSuffixes {
		if strings.HasSuffix(path, s) {
			return false
		}
	}
	return true
}
