package lang

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectManifestCargo(t *testing.T) {
	dir := t.TempDir()
	content := "[package]\nname = \"my-crate\"\nversion = \"0.1.0\"\n"
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	m := DetectManifest(dir)
	if m == nil || m.PackagePrefix != "my-crate" {
		t.Fatalf("expected package prefix my-crate, got %+v", m)
	}
}

func TestDetectManifestPyproject(t *testing.T) {
	dir := t.TempDir()
	content := "[project]\nname = \"My-Package\"\nversion = \"1.0\"\n"
	if err := os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	m := DetectManifest(dir)
	if m == nil || m.PackagePrefix != "my_package" {
		t.Fatalf("expected normalized package prefix my_package, got %+v", m)
	}
}

func TestDetectManifestAbsent(t *testing.T) {
	dir := t.TempDir()
	if m := DetectManifest(dir); m != nil {
		t.Fatalf("expected nil manifest, got %+v", m)
	}
}

func TestLoadOpenAPIRoutesAndCorroborate(t *testing.T) {
	dir := t.TempDir()
	spec := `openapi: "3.0.0"
info:
  title: test
  version: "1"
paths:
  /widgets:
    get:
      summary: list widgets
    post:
      summary: create widget
`
	if err := os.WriteFile(filepath.Join(dir, "openapi.yaml"), []byte(spec), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	routes := LoadOpenAPIRoutes(dir)
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %+v", routes)
	}
	if c := CorroborateRoute(routes, "GET", "/widgets", 0.6); c != 1.0 {
		t.Fatalf("expected corroborated confidence 1.0, got %v", c)
	}
	if c := CorroborateRoute(routes, "DELETE", "/widgets", 0.6); c != 0.6 {
		t.Fatalf("expected unmatched confidence unchanged, got %v", c)
	}
}
