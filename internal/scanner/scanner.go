package scanner

import (
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"cgraph/internal/errors"
	"cgraph/internal/logging"
)

// FileEntry is one element of the scanner's deterministic output stream
// (spec §4.B): path, language, size, and mtime.
type FileEntry struct {
	Path     string // relative to repo root, slash-separated
	Language Language
	Size     int64
	ModTime  int64
	Digest   string // blake2b content digest, spec §3 File.content digest
}

// Config controls scanning behavior (spec §4.B, §6).
type Config struct {
	LargeFileSkipMB int
	IgnoresDisabled bool
	Subpaths        []string
}

// Scanner walks a repo root producing FileEntry values.
type Scanner struct {
	root    string
	ignores *IgnoreSet
	cfg     Config
	logger  *logging.Logger
}

// New constructs a Scanner rooted at repoRoot.
func New(repoRoot string, ignores *IgnoreSet, cfg Config, logger *logging.Logger) *Scanner {
	if cfg.LargeFileSkipMB <= 0 {
		cfg.LargeFileSkipMB = 10
	}
	return &Scanner{root: repoRoot, ignores: ignores, cfg: cfg, logger: logger}
}

// Scan walks the repo and returns a deterministic, path-sorted file stream.
func (s *Scanner) Scan() ([]FileEntry, error) {
	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return nil, errors.Wrap(errors.IO, "failed to resolve repo root", err)
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, errors.Wrap(errors.IO, "failed to resolve repo root symlinks", err)
	}

	roots := []string{absRoot}
	if len(s.cfg.Subpaths) > 0 {
		roots = nil
		for _, sp := range s.cfg.Subpaths {
			roots = append(roots, filepath.Join(absRoot, sp))
		}
	}

	var entries []FileEntry
	seen := map[string]bool{}
	for _, walkRoot := range roots {
		err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Warn("walk error", map[string]interface{}{"path": path, "error": err.Error()})
				return nil
			}
			rel, err := filepath.Rel(absRoot, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
					return filepath.SkipDir
				}
				return nil
			}

			if !s.pathSafe(absRoot, path) {
				s.logger.Security("rejected path escaping repo root", map[string]interface{}{"path": path})
				return nil
			}

			if !s.cfg.IgnoresDisabled && s.ignores.Match(rel) {
				return nil
			}
			if seen[rel] {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Mode()&fs.ModeSymlink != 0 {
				resolved, err := filepath.EvalSymlinks(path)
				if err != nil || !s.pathSafe(absRoot, resolved) {
					s.logger.Security("rejected symlink escaping repo root", map[string]interface{}{"path": path})
					return nil
				}
			}

			ext := filepath.Ext(rel)
			if IsBinaryExtension(ext) {
				return nil
			}
			if info.Size() > int64(s.cfg.LargeFileSkipMB)*1024*1024 {
				s.logger.Info("skipping oversized file", map[string]interface{}{"path": rel, "size": info.Size()})
				return nil
			}

			lang := LanguageFromExtension(ext)
			digest, err := digestFile(path)
			if err != nil {
				s.logger.Warn("failed to digest file", map[string]interface{}{"path": rel, "error": err.Error()})
				return nil
			}

			seen[rel] = true
			entries = append(entries, FileEntry{
				Path: rel, Language: lang, Size: info.Size(),
				ModTime: info.ModTime().Unix(), Digest: digest,
			})
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(errors.IO, "failed to walk repo", err)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// pathSafe reports whether path, once canonicalized, lies under root
// (spec §4.B edge semantics, §6 Security, §8 Property 9).
func (s *Scanner) pathSafe(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// digestFile computes a blake2b-256 content digest. golang.org/x/crypto is
// a teacher dependency used there only for bcrypt; cgraph repurposes the
// package for fast file digests, a distinct concern from identity's
// sha256-based stable_id fingerprinting.
func digestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
