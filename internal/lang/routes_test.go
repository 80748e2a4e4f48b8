//go:build cgo

package lang

import (
	"testing"

	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

func TestExtractGoRouteCall(t *testing.T) {
	source := []byte(`package main

func setup() {
	router.Post("/users/create", createUser)
}
`)
	r := NewRegistry()
	result, err := r.For(scanner.Go).Extract(source, "pkg.main")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	var sawRoute, sawEdge bool
	for _, s := range result.Symbols {
		if s.Kind == store.KindRoute && s.Name == "POST /users/create" {
			sawRoute = true
		}
	}
	for _, e := range result.Edges {
		if e.Kind == store.EdgeHTTPRoute && e.SourceQualName == "pkg.main" {
			sawEdge = true
		}
	}
	if !sawRoute {
		t.Errorf("expected a KindRoute symbol for POST /users/create, got %+v", result.Symbols)
	}
	if !sawEdge {
		t.Errorf("expected an HTTP_ROUTE edge, got %+v", result.Edges)
	}
}

func TestExtractPythonFlaskDecoratorRoute(t *testing.T) {
	source := []byte(`@app.route("/health", methods=["GET"])
def health():
    return "ok"
`)
	r := NewRegistry()
	result, err := r.For(scanner.Python).Extract(source, "pkg.mod")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	var saw bool
	for _, s := range result.Symbols {
		if s.Kind == store.KindRoute && s.Name == "GET /health" {
			saw = true
		}
	}
	if !saw {
		t.Errorf("expected a KindRoute symbol for GET /health, got %+v", result.Symbols)
	}
}

func TestExtractJavaSpringAnnotationRoute(t *testing.T) {
	source := []byte(`class UserController {
    @GetMapping("/users/{id}")
    public User get(String id) {
        return null;
    }
}
`)
	r := NewRegistry()
	result, err := r.For(scanner.Java).Extract(source, "pkg.mod")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	var saw bool
	for _, s := range result.Symbols {
		if s.Kind == store.KindRoute && s.Name == "GET /users/{id}" {
			saw = true
		}
	}
	if !saw {
		t.Errorf("expected a KindRoute symbol for GET /users/{id}, got %+v", result.Symbols)
	}
}

func TestExtractRustAttributeRoute(t *testing.T) {
	source := []byte(`#[get("/status")]
fn status() {}
`)
	r := NewRegistry()
	result, err := r.For(scanner.Rust).Extract(source, "pkg.mod")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	var saw bool
	for _, s := range result.Symbols {
		if s.Kind == store.KindRoute && s.Name == "GET /status" {
			saw = true
		}
	}
	if !saw {
		t.Errorf("expected a KindRoute symbol for GET /status, got %+v", result.Symbols)
	}
}

func TestNoRouteWithoutLeadingSlash(t *testing.T) {
	source := []byte(`package main

func setup() {
	router.Get("users", listUsers)
}
`)
	r := NewRegistry()
	result, err := r.For(scanner.Go).Extract(source, "pkg.main")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for _, s := range result.Symbols {
		if s.Kind == store.KindRoute {
			t.Errorf("did not expect a route symbol for a path missing a leading slash, got %+v", s)
		}
	}
}
