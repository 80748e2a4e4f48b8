package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"cgraph/internal/logging"
)

func silentLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.Error}, nil)
}

func TestScanHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, ".gitignore"), "ignored.go\n")
	mustWrite(t, filepath.Join(dir, "kept.go"), "package main\n")
	mustWrite(t, filepath.Join(dir, "ignored.go"), "package main\n")

	ignores, err := LoadIgnoreSet(dir, "")
	if err != nil {
		t.Fatalf("LoadIgnoreSet failed: %v", err)
	}
	s := New(dir, ignores, Config{}, silentLogger())
	entries, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	for _, e := range entries {
		if e.Path == "ignored.go" {
			t.Fatalf("expected ignored.go to be excluded by .gitignore")
		}
	}
	found := false
	for _, e := range entries {
		if e.Path == "kept.go" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected kept.go to be present, got %+v", entries)
	}
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 2*1024*1024)
	mustWriteBytes(t, filepath.Join(dir, "big.go"), big)

	ignores, _ := LoadIgnoreSet(dir, "")
	s := New(dir, ignores, Config{LargeFileSkipMB: 1}, silentLogger())
	entries, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	for _, e := range entries {
		if e.Path == "big.go" {
			t.Fatalf("expected oversized file to be skipped")
		}
	}
}

func TestScanDeterministicOrdering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"z.go", "a.go", "m.go"} {
		mustWrite(t, filepath.Join(dir, name), "package main\n")
	}
	ignores, _ := LoadIgnoreSet(dir, "")
	s := New(dir, ignores, Config{}, silentLogger())

	entries1, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	entries2, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(entries1) != len(entries2) {
		t.Fatalf("scan result count differs across runs")
	}
	for i := range entries1 {
		if entries1[i].Path != entries2[i].Path {
			t.Fatalf("scan ordering is not deterministic: %v vs %v", entries1, entries2)
		}
	}
	if entries1[0].Path != "a.go" {
		t.Fatalf("expected lexicographic ordering, got %+v", entries1)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	mustWriteBytes(t, path, []byte(content))
}

func mustWriteBytes(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
