package lang

import (
	"testing"

	"cgraph/internal/store"
)

func TestTokenizeProtoSkipsCommentsAndWhitespace(t *testing.T) {
	source := []byte(`// leading comment
message /* inline */ Foo {
  string name = 1;
}
`)
	tokens := tokenizeProto(source)
	var text []string
	for _, tok := range tokens {
		text = append(text, tok.text)
	}
	want := []string{"message", "Foo", "{", "string", "name", ";", "}"}
	if len(text) != len(want) {
		t.Fatalf("tokenizeProto() = %v, want %v", text, want)
	}
	for i, w := range want {
		if text[i] != w {
			t.Errorf("token[%d] = %q, want %q", i, text[i], w)
		}
	}
}

func TestExtractProtoMessageAndService(t *testing.T) {
	source := []byte(`syntax = "proto3";

message TriggerRequest {
  string id = 1;
}

message TriggerResponse {
  bool ok = 1;
}

service TriggerService {
  rpc Trigger(TriggerRequest) returns (TriggerResponse);
}
`)
	e := &protoExtractor{extensions: []string{".proto"}}
	result, err := e.Extract(source, "pkg.trigger")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	kinds := map[string]store.SymbolKind{}
	for _, s := range result.Symbols {
		kinds[s.Name] = s.Kind
	}
	if kinds["TriggerRequest"] != store.KindProtoMsg {
		t.Errorf("expected TriggerRequest to be KindProtoMsg, got %+v", kinds)
	}
	if kinds["TriggerResponse"] != store.KindProtoMsg {
		t.Errorf("expected TriggerResponse to be KindProtoMsg, got %+v", kinds)
	}
	if kinds["TriggerService"] != store.KindProtoSvc {
		t.Errorf("expected TriggerService to be KindProtoSvc, got %+v", kinds)
	}
	if kinds["Trigger"] != store.KindRPCMethod {
		t.Errorf("expected Trigger to be KindRPCMethod, got %+v", kinds)
	}

	var containsMethod bool
	var reqRef, respRef bool
	for _, e := range result.Edges {
		if e.Kind == store.EdgeContains && e.SourceQualName == "pkg.trigger.TriggerService" && e.TargetQualName == "pkg.trigger.TriggerService.Trigger" {
			containsMethod = true
		}
		if e.Kind == store.EdgeTypeRef && e.SourceQualName == "pkg.trigger.TriggerService.Trigger" {
			switch e.TargetQualName {
			case "TriggerRequest":
				reqRef = true
			case "TriggerResponse":
				respRef = true
			}
		}
	}
	if !containsMethod {
		t.Errorf("expected CONTAINS edge from service to rpc method, got %+v", result.Edges)
	}
	if !reqRef || !respRef {
		t.Errorf("expected TYPE_REF edges from method to request and response messages, got %+v", result.Edges)
	}
}

func TestExtractProtoServiceWithMultipleMethods(t *testing.T) {
	source := []byte(`service Store {
  rpc Get(GetRequest) returns (GetResponse);
  rpc Put(PutRequest) returns (PutResponse);
}
`)
	e := &protoExtractor{extensions: []string{".proto"}}
	result, err := e.Extract(source, "pkg.store")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	var methods []string
	for _, s := range result.Symbols {
		if s.Kind == store.KindRPCMethod {
			methods = append(methods, s.Name)
		}
	}
	if len(methods) != 2 {
		t.Fatalf("expected 2 rpc methods, got %+v", methods)
	}
}
