package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cgraph/internal/logging"
)

func TestPollerDetectsChangesAndDeletions(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep.go")
	remove := filepath.Join(root, "remove.go")
	if err := os.WriteFile(keep, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := os.WriteFile(remove, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	logger := logging.New(logging.Config{Level: logging.Error}, nil)
	var gotChanged, gotDeleted []string
	p := NewPoller(root, nil, time.Hour, logger, func(changed, deleted []string) {
		gotChanged = changed
		gotDeleted = deleted
	})
	if err := p.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer p.Stop()

	if err := os.WriteFile(keep, []byte("package main\n\nfunc f() {}\n"), 0o644); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if err := os.Remove(remove); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	p.pollOnce()

	if len(gotChanged) != 1 || gotChanged[0] != "keep.go" {
		t.Fatalf("expected keep.go changed, got %+v", gotChanged)
	}
	if len(gotDeleted) != 1 || gotDeleted[0] != "remove.go" {
		t.Fatalf("expected remove.go deleted, got %+v", gotDeleted)
	}
}
