//go:build cgo

package lang

import (
	"testing"

	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

func TestExtractPythonInheritance(t *testing.T) {
	source := []byte(`class Base:
    pass

class Widget(Base):
    def render(self):
        pass
`)
	r := NewRegistry()
	result, err := r.For(scanner.Python).Extract(source, "pkg.mod")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	var saw bool
	for _, e := range result.Edges {
		if e.Kind == store.EdgeExtends && e.SourceQualName == "pkg.mod.Widget" && e.TargetQualName == "Base" {
			saw = true
		}
	}
	if !saw {
		t.Errorf("expected EXTENDS edge Widget->Base, got %+v", result.Edges)
	}
}

func TestExtractPythonInheritanceSkipsObject(t *testing.T) {
	source := []byte(`class Widget(object):
    pass
`)
	r := NewRegistry()
	result, err := r.For(scanner.Python).Extract(source, "pkg.mod")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for _, e := range result.Edges {
		if e.Kind == store.EdgeExtends {
			t.Errorf("did not expect an EXTENDS edge for a bare `object` base, got %+v", e)
		}
	}
}

func TestExtractJavaHeritageAndRPCServiceTag(t *testing.T) {
	source := []byte(`class TriggerHandler extends UnimplementedTriggerServiceServer implements Runnable {
    void run() {}
}
`)
	r := NewRegistry()
	result, err := r.For(scanner.Java).Extract(source, "pkg.mod")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	var sawExtends, sawImplements bool
	for _, e := range result.Edges {
		switch {
		case e.Kind == store.EdgeExtends && e.TargetQualName == "UnimplementedTriggerServiceServer":
			sawExtends = true
		case e.Kind == store.EdgeImplements && e.TargetQualName == "Runnable":
			sawImplements = true
		}
	}
	if !sawExtends {
		t.Errorf("expected EXTENDS edge to UnimplementedTriggerServiceServer, got %+v", result.Edges)
	}
	if !sawImplements {
		t.Errorf("expected IMPLEMENTS edge to Runnable, got %+v", result.Edges)
	}

	var kind store.SymbolKind
	for _, s := range result.Symbols {
		if s.Name == "TriggerHandler" {
			kind = s.Kind
		}
	}
	if kind != store.KindRPCService {
		t.Errorf("expected TriggerHandler tagged KIND_RPC_SERVICE from its Unimplemented...Server heritage, got %v", kind)
	}
}

func TestExtractGoEmbeddedFieldAsInherits(t *testing.T) {
	source := []byte(`package main

type Base struct {
	ID string
}

type Widget struct {
	Base
	Name string
}
`)
	r := NewRegistry()
	result, err := r.For(scanner.Go).Extract(source, "pkg.main")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	var saw bool
	for _, e := range result.Edges {
		if e.Kind == store.EdgeInherits && e.SourceQualName == "pkg.main.Widget" && e.TargetQualName == "Base" {
			saw = true
		}
	}
	if !saw {
		t.Errorf("expected INHERITS edge Widget->Base from embedded field, got %+v", result.Edges)
	}
}

func TestExtractRustImplTraitEdge(t *testing.T) {
	source := []byte(`struct Widget;

trait Renderable {
    fn render(&self);
}

impl Renderable for Widget {
    fn render(&self) {}
}
`)
	r := NewRegistry()
	result, err := r.For(scanner.Rust).Extract(source, "pkg.mod")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	var saw bool
	for _, e := range result.Edges {
		if e.Kind == store.EdgeImplements && e.TargetQualName == "Renderable" {
			saw = true
		}
	}
	if !saw {
		t.Errorf("expected IMPLEMENTS edge to Renderable, got %+v", result.Edges)
	}
}

func TestExtractGoTypeRefEdges(t *testing.T) {
	source := []byte(`package main

func Handle(req *TriggerRequest) *TriggerResponse {
	return nil
}
`)
	r := NewRegistry()
	result, err := r.For(scanner.Go).Extract(source, "pkg.main")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	targets := map[string]bool{}
	for _, e := range result.Edges {
		if e.Kind == store.EdgeTypeRef {
			targets[e.TargetQualName] = true
		}
	}
	if !targets["TriggerRequest"] || !targets["TriggerResponse"] {
		t.Errorf("expected TYPE_REF edges to TriggerRequest and TriggerResponse, got %+v", result.Edges)
	}
}

func TestIsRPCServiceImpl(t *testing.T) {
	cases := []struct {
		name  string
		edges []ExtractedEdge
		want  bool
	}{
		{"grpc-go unimplemented server", []ExtractedEdge{{Kind: store.EdgeExtends, Evidence: "grpc.UnimplementedTriggerServiceServer"}}, true},
		{"grpc-java impl base", []ExtractedEdge{{Kind: store.EdgeExtends, Evidence: "TriggerServiceGrpc.TriggerServiceImplBase"}}, true},
		{"grpcio servicer", []ExtractedEdge{{Kind: store.EdgeExtends, Evidence: "trigger_pb2_grpc.TriggerServiceServicer"}}, true},
		{"unrelated base class", []ExtractedEdge{{Kind: store.EdgeExtends, Evidence: "BaseHandler"}}, false},
		{"no edges", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRPCServiceImpl(tc.edges); got != tc.want {
				t.Errorf("isRPCServiceImpl() = %v, want %v", got, tc.want)
			}
		})
	}
}
