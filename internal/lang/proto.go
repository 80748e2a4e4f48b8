package lang

import (
	"cgraph/internal/identity"
	"cgraph/internal/store"
)

// protoExtractor recovers service/rpc/message declarations from a .proto
// file with a small hand-rolled tokenizer rather than a tree-sitter
// grammar — no protobuf grammar exists in this stack, and the system
// this indexer's design is grounded on parses protobuf IDL the same way:
// a byte-level token walk keyed on package/service/rpc/message rather
// than a full grammar for a handful of keywords.
type protoExtractor struct {
	extensions []string
}

func (e *protoExtractor) SupportedExtensions() []string { return e.extensions }

type protoToken struct {
	text string
	line int
}

func tokenizeProto(source []byte) []protoToken {
	var tokens []protoToken
	line := 1
	i, n := 0, len(source)
	for i < n {
		b := source[i]
		switch {
		case b == '\n':
			line++
			i++
		case b == ' ' || b == '\t' || b == '\r':
			i++
		case b == '/' && i+1 < n && source[i+1] == '/':
			for i < n && source[i] != '\n' {
				i++
			}
		case b == '/' && i+1 < n && source[i+1] == '*':
			i += 2
			for i+1 < n && !(source[i] == '*' && source[i+1] == '/') {
				if source[i] == '\n' {
					line++
				}
				i++
			}
			i += 2
		case isProtoIdentStart(b):
			start, startLine := i, line
			for i < n && isProtoIdentContinue(source[i]) {
				i++
			}
			tokens = append(tokens, protoToken{text: string(source[start:i]), line: startLine})
		case b == '{' || b == '}' || b == '(' || b == ')' || b == ';':
			tokens = append(tokens, protoToken{text: string(b), line: line})
			i++
		default:
			i++
		}
	}
	return tokens
}

func isProtoIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isProtoIdentContinue(b byte) bool {
	return isProtoIdentStart(b) || (b >= '0' && b <= '9') || b == '.'
}

func (e *protoExtractor) Extract(source []byte, modulePath string) (ExtractedFile, error) {
	tokens := tokenizeProto(source)
	lines := countLines(source)

	var symbols []identity.ExtractedSymbol
	var edges []ExtractedEdge
	symbols = append(symbols, identity.ExtractedSymbol{
		Kind: store.KindModule, Name: modulePath, QualName: modulePath, StartLine: 1, EndLine: lines,
	})

	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		switch tok.text {
		case "message":
			if i+1 < len(tokens) {
				name := tokens[i+1].text
				qual := modulePath + "." + name
				symbols = append(symbols, identity.ExtractedSymbol{
					Kind: store.KindProtoMsg, Name: name, QualName: qual, StartLine: tok.line, EndLine: tok.line,
				})
				edges = append(edges, ExtractedEdge{Kind: store.EdgeContains, SourceQualName: modulePath, TargetQualName: qual, Confidence: 1.0})
			}
			i += 2
		case "service":
			if i+1 >= len(tokens) {
				i++
				continue
			}
			name := tokens[i+1].text
			svcQual := modulePath + "." + name
			symbols = append(symbols, identity.ExtractedSymbol{
				Kind: store.KindProtoSvc, Name: name, QualName: svcQual, StartLine: tok.line, EndLine: tok.line,
			})
			edges = append(edges, ExtractedEdge{Kind: store.EdgeContains, SourceQualName: modulePath, TargetQualName: svcQual, Confidence: 1.0})

			next, methods, methodEdges := parseProtoServiceBody(tokens, i+2, svcQual)
			symbols = append(symbols, methods...)
			for _, m := range methods {
				edges = append(edges, ExtractedEdge{Kind: store.EdgeContains, SourceQualName: svcQual, TargetQualName: m.QualName, Confidence: 1.0})
			}
			edges = append(edges, methodEdges...)
			i = next
		default:
			i++
		}
	}

	return ExtractedFile{Symbols: symbols, Edges: edges, Metrics: FileMetrics{LinesOfCode: lines}}, nil
}

// parseProtoServiceBody walks a service's `{ ... }` block starting at idx
// (the token after the service name), returning the index just past the
// closing brace, the rpc-method symbols found inside, and a TYPE_REF edge
// from each method to its request/response message (spec §8 scenario E:
// flow.protocolContext reads these back off the method to label
// request/response on a boundary-crossing trace).
func parseProtoServiceBody(tokens []protoToken, idx int, svcQual string) (int, []identity.ExtractedSymbol, []ExtractedEdge) {
	var methods []identity.ExtractedSymbol
	var edges []ExtractedEdge
	depth := 0
	started := false
	j := idx
	for j < len(tokens) {
		t := tokens[j]
		switch t.text {
		case "{":
			depth++
			started = true
		case "}":
			depth--
			if started && depth == 0 {
				return j + 1, methods, edges
			}
		case "rpc":
			if depth == 1 && j+1 < len(tokens) {
				name := tokens[j+1].text
				qual := svcQual + "." + name
				methods = append(methods, identity.ExtractedSymbol{
					Kind: store.KindRPCMethod, Name: name, QualName: qual, StartLine: t.line, EndLine: t.line,
				})
				req, resp, next := parseProtoRPCTypes(tokens, j+2)
				if req != "" {
					edges = append(edges, ExtractedEdge{Kind: store.EdgeTypeRef, SourceQualName: qual, TargetQualName: req, Confidence: 0.8})
				}
				if resp != "" {
					edges = append(edges, ExtractedEdge{Kind: store.EdgeTypeRef, SourceQualName: qual, TargetQualName: resp, Confidence: 0.8})
				}
				j = next
				continue
			}
		}
		j++
		if started && depth == 0 {
			return j, methods, edges
		}
	}
	return j, methods, edges
}

// parseProtoRPCTypes reads `(Req) returns (Resp);` (or `{ ... }` in place
// of the trailing `;` for method options) starting right after the rpc
// method's name token, returning the request/response type names and the
// index just past the statement.
func parseProtoRPCTypes(tokens []protoToken, idx int) (req, resp string, next int) {
	i := idx
	if i < len(tokens) && tokens[i].text == "(" {
		i++
		for i < len(tokens) && tokens[i].text != ")" {
			if tokens[i].text != "stream" {
				req = tokens[i].text
			}
			i++
		}
		i++
	}
	for i < len(tokens) && tokens[i].text != "returns" && tokens[i].text != ";" && tokens[i].text != "{" {
		i++
	}
	if i < len(tokens) && tokens[i].text == "returns" {
		i++
		if i < len(tokens) && tokens[i].text == "(" {
			i++
			for i < len(tokens) && tokens[i].text != ")" {
				if tokens[i].text != "stream" {
					resp = tokens[i].text
				}
				i++
			}
			i++
		}
	}
	for i < len(tokens) && tokens[i].text != ";" && tokens[i].text != "{" {
		i++
	}
	if i < len(tokens) && tokens[i].text == "{" {
		depth := 1
		i++
		for i < len(tokens) && depth > 0 {
			if tokens[i].text == "{" {
				depth++
			} else if tokens[i].text == "}" {
				depth--
			}
			i++
		}
	} else if i < len(tokens) {
		i++
	}
	return req, resp, i
}
