package gitmine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestParseCommitsGroupsFilesByCommit(t *testing.T) {
	raw := "@@abc123 2024-01-01T00:00:00Z\na.go\nb.go\n\n@@def456 2024-01-02T00:00:00Z\nb.go\nc.go\n"
	commits := parseCommits(raw)
	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}
	if len(commits[0].files) != 2 || commits[0].files[0] != "a.go" {
		t.Fatalf("unexpected first commit files: %+v", commits[0].files)
	}
	if len(commits[1].files) != 2 || commits[1].files[1] != "c.go" {
		t.Fatalf("unexpected second commit files: %+v", commits[1].files)
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("git unavailable or command failed (%v): %s", err, out)
	}
}

func TestMineComputesCoChangeWeights(t *testing.T) {
	root := t.TempDir()
	runGit(t, root, "init")
	a := filepath.Join(root, "a.go")
	b := filepath.Join(root, "b.go")
	os.WriteFile(a, []byte("package a\n"), 0o644)
	os.WriteFile(b, []byte("package b\n"), 0o644)
	runGit(t, root, "add", ".")
	runGit(t, root, "commit", "-m", "first")

	os.WriteFile(a, []byte("package a\n\nfunc F() {}\n"), 0o644)
	os.WriteFile(b, []byte("package b\n\nfunc G() {}\n"), 0o644)
	runGit(t, root, "add", ".")
	runGit(t, root, "commit", "-m", "second")

	records, err := Mine(context.Background(), root, Config{MaxCommits: 10, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("mine failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 co-change record, got %d: %+v", len(records), records)
	}
	r := records[0]
	if r.Weight != 2 {
		t.Fatalf("expected weight 2 (both commits touched both files), got %d", r.Weight)
	}
	if r.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %f", r.Confidence)
	}
}
