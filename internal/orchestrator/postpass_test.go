//go:build cgo

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cgraph/internal/config"
	"cgraph/internal/lang"
	"cgraph/internal/logging"
	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

func newTestOrchestrator(t *testing.T, files map[string]string) (*Orchestrator, *store.DB) {
	t.Helper()
	repoRoot := t.TempDir()
	for name, content := range files {
		path := filepath.Join(repoRoot, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	logger := logging.New(logging.Config{Level: logging.Error}, nil)
	db, err := store.Open(repoRoot, 4, logger)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	o := New(repoRoot, db, lang.NewRegistry(), config.Default().Indexing, logger)
	ignores, _ := scanner.LoadIgnoreSet(repoRoot, "")
	if _, err := o.FullReindex(context.Background(), ignores); err != nil {
		t.Fatalf("FullReindex failed: %v", err)
	}
	return o, db
}

func TestPostPassLinksProtoServiceToImplementation(t *testing.T) {
	_, db := newTestOrchestrator(t, map[string]string{
		"trigger.proto": `service TriggerService {
  rpc Trigger(TriggerRequest) returns (TriggerResponse);
}
message TriggerRequest { string id = 1; }
message TriggerResponse { bool ok = 1; }
`,
		"handler.go": `package main

type TriggerServiceImpl struct{}

func (t *TriggerServiceImpl) Trigger(id string) bool {
	return true
}
`,
	})
	defer db.Close()

	edges, err := db.GetEdgesByKind(store.EdgeRPCImpl, 0)
	if err != nil {
		t.Fatalf("GetEdgesByKind failed: %v", err)
	}
	var sawServiceLink, sawMethodLink bool
	for _, e := range edges {
		switch e.TargetQualName {
		case "trigger.TriggerService":
			sawServiceLink = true
		case "trigger.TriggerService.Trigger":
			sawMethodLink = true
		}
	}
	if !sawServiceLink {
		t.Errorf("expected an RPC_IMPL edge targeting the proto service, got %+v", edges)
	}
	if !sawMethodLink {
		t.Errorf("expected an RPC_IMPL edge targeting the proto rpc method, got %+v", edges)
	}
}

func TestPostPassEmitsTextualXRefToSQLObject(t *testing.T) {
	_, db := newTestOrchestrator(t, map[string]string{
		"schema.sql": `CREATE TABLE users (
    id INTEGER PRIMARY KEY,
    name TEXT
);
`,
		"data_access.py": `def load_users(db):
    return db.execute("SELECT * FROM users")
`,
	})
	defer db.Close()

	edges, err := db.GetEdgesByKind(store.EdgeXRef, 0)
	if err != nil {
		t.Fatalf("GetEdgesByKind failed: %v", err)
	}
	var saw bool
	for _, e := range edges {
		if e.TargetQualName == "schema.users" {
			saw = true
		}
	}
	if !saw {
		t.Errorf("expected an XREF edge from the python file to the users table, got %+v", edges)
	}
}

func TestPostPassCorroboratesRouteAgainstOpenAPISpec(t *testing.T) {
	_, db := newTestOrchestrator(t, map[string]string{
		"openapi.yaml": `openapi: "3.0.0"
paths:
  /health:
    get:
      summary: health check
`,
		"server.go": `package main

func setup() {
	router.Get("/health", healthCheck)
}
`,
	})
	defer db.Close()

	edges, err := db.GetEdgesByKind(store.EdgeHTTPRoute, 0)
	if err != nil {
		t.Fatalf("GetEdgesByKind failed: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected exactly 1 HTTP_ROUTE edge, got %+v", edges)
	}
	if edges[0].Confidence != 1.0 {
		t.Errorf("expected OpenAPI corroboration to raise confidence to 1.0, got %v", edges[0].Confidence)
	}
}

func TestPostPassLinksHTTPCallToRoute(t *testing.T) {
	_, db := newTestOrchestrator(t, map[string]string{
		"server.go": `package main

func setup() {
	router.Get("/users", listUsers)
}
`,
		"client.js": `function loadUsers() {
	return fetch("/users");
}
`,
	})
	defer db.Close()

	edges, err := db.GetEdgesByKind(store.EdgeHTTPCall, 0)
	if err != nil {
		t.Fatalf("GetEdgesByKind failed: %v", err)
	}
	if len(edges) == 0 {
		t.Fatalf("expected at least one HTTP_CALL edge linking client.js to the /users route")
	}
}
