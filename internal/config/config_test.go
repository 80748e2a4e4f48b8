package config

import (
	"os"
	"path/filepath"
	"testing"

	cgraphErrors "cgraph/internal/errors"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Watch.UrgentDebounceMs != 50 || cfg.Watch.NormalDebounceMs != 300 {
		t.Fatalf("expected default debounce values, got %+v", cfg.Watch)
	}
}

func TestSaveThenLoadRoundtrips(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Impact.MaxNodes = 42
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Impact.MaxNodes != 42 {
		t.Fatalf("expected roundtripped MaxNodes=42, got %d", loaded.Impact.MaxNodes)
	}
}

func TestValidateRejectsBadVersion(t *testing.T) {
	cfg := Default()
	cfg.Version = 99
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error for unsupported version")
	}
	if cgraphErrors.CodeOf(err) != cgraphErrors.Configuration {
		t.Fatalf("expected Configuration error code, got %v", cgraphErrors.CodeOf(err))
	}
}

func TestConfigPathIsUnderDotCgraph(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	want := filepath.Join(dir, ".cgraph", "config.json")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected config file at %s: %v", want, err)
	}
	if _, err := Load(dir); err != nil {
		t.Fatalf("load failed: %v", err)
	}
}
