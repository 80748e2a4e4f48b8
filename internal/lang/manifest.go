package lang

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// cargoManifest is the subset of Cargo.toml fields needed to recover a
// crate's package prefix, grounded on the teacher's
// internal/modules/declaration.go ModulesFile/ModuleDeclaration toml structs.
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
}

// pyprojectManifest is the subset of pyproject.toml needed for the same
// purpose on the Python side (PEP 621 [project] table, or legacy Poetry).
type pyprojectManifest struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name string `toml:"name"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// ManifestInfo is what a directory's build manifest tells the extractors
// about qualname construction for files beneath it.
type ManifestInfo struct {
	Dir            string
	PackagePrefix  string
	Language       string
}

// DetectManifest looks for a Cargo.toml or pyproject.toml in dir and parses
// it into a ManifestInfo, returning nil if neither is present or parsing
// fails (a missing/malformed manifest degrades gracefully, the extractor
// falls back to path-derived qualnames).
func DetectManifest(dir string) *ManifestInfo {
	if data, err := os.ReadFile(filepath.Join(dir, "Cargo.toml")); err == nil {
		var m cargoManifest
		if err := toml.Unmarshal(data, &m); err == nil && m.Package.Name != "" {
			return &ManifestInfo{Dir: dir, PackagePrefix: m.Package.Name, Language: "rust"}
		}
	}
	if data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml")); err == nil {
		var m pyprojectManifest
		if err := toml.Unmarshal(data, &m); err == nil {
			name := m.Project.Name
			if name == "" {
				name = m.Tool.Poetry.Name
			}
			if name != "" {
				return &ManifestInfo{Dir: dir, PackagePrefix: normalizePackageName(name), Language: "python"}
			}
		}
	}
	return nil
}

func normalizePackageName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

// QualifyModulePath prefixes modulePath with the nearest enclosing
// manifest's package prefix, if one was found walking up from its
// directory (spec §3 "qualname" construction for Rust/Python modules).
func QualifyModulePath(manifests map[string]*ManifestInfo, modulePath, fileDir string) string {
	dir := fileDir
	for {
		if m, ok := manifests[dir]; ok {
			return m.PackagePrefix + "." + modulePath
		}
		if dir == "." || dir == "" {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return modulePath
}
