//go:build cgo

package dispatcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"cgraph/internal/config"
	"cgraph/internal/lang"
	"cgraph/internal/logging"
	"cgraph/internal/orchestrator"
	"cgraph/internal/query"
	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

func newTestDispatcher(t *testing.T, files map[string]string) *Dispatcher {
	t.Helper()
	repoRoot := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(repoRoot, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	logger := logging.New(logging.Config{Level: logging.Error}, nil)
	db, err := store.Open(repoRoot, 4, logger)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	registry := lang.NewRegistry()
	cfg := config.Default()
	o := orchestrator.New(repoRoot, db, registry, cfg.Indexing, logger)
	ignores, err := scanner.LoadIgnoreSet(repoRoot, "")
	if err != nil {
		t.Fatalf("LoadIgnoreSet failed: %v", err)
	}
	result, err := o.FullReindex(context.Background(), ignores)
	if err != nil {
		t.Fatalf("FullReindex failed: %v", err)
	}
	if result.State != orchestrator.Committed {
		t.Fatalf("expected Committed state, got %v (err=%v)", result.State, result.Err)
	}

	engine := query.New(repoRoot, db, cfg, logger)
	return New(repoRoot, engine, o, registry, cfg, logger)
}

func mustParams(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal params failed: %v", err)
	}
	return data
}

func TestDispatchFindSymbolReturnsEnvelopeWithNextHops(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{
		"main.go": `package main

func doWork() {}

func main() {
	doWork()
}
`,
	})

	env := d.Dispatch(context.Background(), "find_symbol", mustParams(t, findSymbolParams{Query: "doWork"}))
	if env.Error != nil {
		t.Fatalf("unexpected error: %+v", env.Error)
	}
	res, ok := env.Data.(*query.FindSymbolResult)
	if !ok {
		t.Fatalf("expected *query.FindSymbolResult, got %T", env.Data)
	}
	if len(res.Matches) == 0 {
		t.Fatalf("expected at least one match")
	}
	if len(env.NextHops) == 0 {
		t.Fatalf("expected next_hops on a successful find_symbol")
	}
}

func TestDispatchUnknownMethodReturnsMethodNotFound(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"main.go": "package main\n"})

	env := d.Dispatch(context.Background(), "not_a_real_method", nil)
	if env.Error == nil || env.Error.Code != "method_not_found" {
		t.Fatalf("expected method_not_found error, got %+v", env.Error)
	}
}

func TestDispatchMissingRequiredParamReturnsInvalidParams(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"main.go": "package main\n"})

	env := d.Dispatch(context.Background(), "find_symbol", mustParams(t, findSymbolParams{}))
	if env.Error == nil || env.Error.Code != "invalid_params" {
		t.Fatalf("expected invalid_params error, got %+v", env.Error)
	}
}

func TestDispatchOpenFileRejectsPathEscape(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"main.go": "package main\n"})

	env := d.Dispatch(context.Background(), "open_file", mustParams(t, openFileParams{Path: "../../etc/passwd"}))
	if env.Error == nil {
		t.Fatalf("expected an error for a path escaping the repo root")
	}
}

func TestListMethodsIncludesCoreOperations(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"main.go": "package main\n"})

	env := d.Dispatch(context.Background(), "list_methods", nil)
	names, ok := env.Data.([]string)
	if !ok {
		t.Fatalf("expected []string, got %T", env.Data)
	}
	want := map[string]bool{"find_symbol": false, "gather_context": false, "repo_map": false, "analyze_impact": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected list_methods to include %q", name)
		}
	}
}
