//go:build cgo

package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cgraph/internal/identity"
	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

// routeVerbs maps the last identifier segment of a route-registration call
// (app.get(...), router.Post(...), srv.HandleFunc(...)) to an HTTP verb.
// A small, declared set of call shapes, not a general HTTP client scan.
var routeVerbs = map[string]string{
	"get": "GET", "Get": "GET", "GET": "GET",
	"post": "POST", "Post": "POST", "POST": "POST",
	"put": "PUT", "Put": "PUT", "PUT": "PUT",
	"delete": "DELETE", "Delete": "DELETE", "DELETE": "DELETE",
	"patch": "PATCH", "Patch": "PATCH", "PATCH": "PATCH",
	"handle": "ANY", "Handle": "ANY", "HandleFunc": "ANY", "any": "ANY", "Any": "ANY",
}

var routeStringTypes = map[string]bool{
	"interpreted_string_literal": true, "string": true, "raw_string_literal": true,
	"string_literal": true, "template_string": true,
}

type routeCallFinding struct {
	method string
	path   string
	node   *sitter.Node
}

// callRouteFindings scans call expressions for the `<router>.<verb>("/path", handler)`
// shape used by Go's net/http-adjacent routers, Express, and similar JS/TS
// frameworks. Restricted to languages where this call-site pattern is the
// idiomatic way to register a route.
func callRouteFindings(root *sitter.Node, source []byte, l scanner.Language, tbl nodeTypes, modulePath string) []routeCallFinding {
	var out []routeCallFinding
	for _, call := range findNodes(root, tbl.callTypes) {
		fn := call.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		fnText := nodeText(fn, source)
		idx := strings.LastIndexByte(fnText, '.')
		if idx < 0 {
			continue
		}
		verb, ok := routeVerbs[fnText[idx+1:]]
		if !ok {
			continue
		}
		args := call.ChildByFieldName("arguments")
		if args == nil {
			continue
		}
		var path string
		for i := 0; i < int(args.ChildCount()); i++ {
			c := args.Child(i)
			if c != nil && routeStringTypes[c.Type()] {
				path = strings.Trim(nodeText(c, source), "\"'`")
				break
			}
		}
		if !strings.HasPrefix(path, "/") {
			continue
		}
		out = append(out, routeCallFinding{method: verb, path: path, node: call})
	}
	return out
}

// decoratorRoute recognizes a route registered as an annotation/decorator
// directly on a function or method node: Python's @app.route(...) family
// and Java's Spring @GetMapping/@PostMapping/... family.
func decoratorRoute(n *sitter.Node, source []byte, l scanner.Language) (string, string, bool) {
	switch l {
	case scanner.Python:
		parent := n.Parent()
		if parent == nil || parent.Type() != "decorated_definition" {
			return "", "", false
		}
		for i := 0; i < int(parent.ChildCount()); i++ {
			c := parent.Child(i)
			if c == nil || c.Type() != "decorator" || sameNode(c, n) {
				continue
			}
			if m, p, ok := flaskDecoratorShape(c, source); ok {
				return m, p, true
			}
		}
	case scanner.Java:
		mods := firstChildOfType(n, "modifiers")
		if mods == nil {
			return "", "", false
		}
		for i := 0; i < int(mods.ChildCount()); i++ {
			c := mods.Child(i)
			if c == nil || (c.Type() != "annotation" && c.Type() != "marker_annotation") {
				continue
			}
			if m, p, ok := javaAnnotationShape(c, source); ok {
				return m, p, true
			}
		}
	case scanner.Rust:
		parent := n.Parent()
		if parent == nil {
			return "", "", false
		}
		var prevAttr *sitter.Node
		for i := 0; i < int(parent.ChildCount()); i++ {
			c := parent.Child(i)
			if c == nil {
				continue
			}
			if sameNode(c, n) {
				break
			}
			if c.Type() == "attribute_item" {
				prevAttr = c
			} else {
				prevAttr = nil
			}
		}
		if prevAttr == nil {
			return "", "", false
		}
		return rustAttributeRouteShape(prevAttr, source)
	}
	return "", "", false
}

func flaskDecoratorShape(dec *sitter.Node, source []byte) (string, string, bool) {
	call := firstChildOfType(dec, "call")
	if call == nil {
		return "", "", false
	}
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return "", "", false
	}
	fnText := nodeText(fn, source)
	verb := ""
	switch {
	case strings.HasSuffix(fnText, ".route"):
		verb = "GET"
	case strings.HasSuffix(fnText, ".get"):
		verb = "GET"
	case strings.HasSuffix(fnText, ".post"):
		verb = "POST"
	case strings.HasSuffix(fnText, ".put"):
		verb = "PUT"
	case strings.HasSuffix(fnText, ".delete"):
		verb = "DELETE"
	case strings.HasSuffix(fnText, ".patch"):
		verb = "PATCH"
	default:
		return "", "", false
	}
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return "", "", false
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		c := args.Child(i)
		if c != nil && c.Type() == "string" {
			return verb, strings.Trim(nodeText(c, source), "\"'"), true
		}
	}
	return "", "", false
}

func javaAnnotationShape(ann *sitter.Node, source []byte) (string, string, bool) {
	nameNode := ann.ChildByFieldName("name")
	if nameNode == nil {
		return "", "", false
	}
	verb, ok := map[string]string{
		"GetMapping": "GET", "PostMapping": "POST", "PutMapping": "PUT",
		"DeleteMapping": "DELETE", "PatchMapping": "PATCH", "RequestMapping": "ANY",
	}[nodeText(nameNode, source)]
	if !ok {
		return "", "", false
	}
	path := ""
	if args := ann.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.ChildCount()); i++ {
			c := args.Child(i)
			if c == nil {
				continue
			}
			switch c.Type() {
			case "string_literal":
				path = strings.Trim(nodeText(c, source), "\"")
			case "element_value_pair":
				key := c.ChildByFieldName("key")
				val := c.ChildByFieldName("value")
				if key == nil || val == nil {
					continue
				}
				keyText := nodeText(key, source)
				if (keyText == "value" || keyText == "path") && val.Type() == "string_literal" {
					path = strings.Trim(nodeText(val, source), "\"")
				}
				if keyText == "method" {
					if idx := strings.LastIndexByte(nodeText(val, source), '.'); idx >= 0 {
						verb = nodeText(val, source)[idx+1:]
					}
				}
			}
		}
	}
	if path == "" {
		return "", "", false
	}
	return verb, path, true
}

func rustAttributeRouteShape(attr *sitter.Node, source []byte) (string, string, bool) {
	text := nodeText(attr, source)
	for _, v := range []string{"get", "post", "put", "delete", "patch"} {
		marker := v + "("
		idx := strings.Index(text, marker)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(marker):]
		start := strings.IndexAny(rest, "\"'")
		if start < 0 {
			continue
		}
		rest = rest[start+1:]
		end := strings.IndexAny(rest, "\"'")
		if end < 0 {
			continue
		}
		path := rest[:end]
		if strings.HasPrefix(path, "/") {
			return strings.ToUpper(v), path, true
		}
	}
	return "", "", false
}

// emitRoute records a route symbol and the HTTP_ROUTE edge linking its
// declaring source (the file's module, or the handler function/method
// itself when the route was found via a decorator) to it.
func (w *walker) emitRoute(method, path, sourceQual string, node *sitter.Node) {
	qual := w.modulePath + ".route:" + method + " " + path
	w.symbols = append(w.symbols, identity.ExtractedSymbol{
		Kind: store.KindRoute, Name: method + " " + path, QualName: qual,
		Signature: method + " " + path,
		StartLine: int(node.StartPoint().Row) + 1, EndLine: int(node.EndPoint().Row) + 1,
		StartCol: int(node.StartPoint().Column), EndCol: int(node.EndPoint().Column),
	})
	w.edges = append(w.edges, ExtractedEdge{
		Kind: store.EdgeHTTPRoute, SourceQualName: sourceQual, TargetQualName: qual,
		Evidence: nodeText(node, w.source), EvidenceStartLine: int(node.StartPoint().Row) + 1,
		EvidenceEndLine: int(node.EndPoint().Row) + 1, Confidence: 0.85,
	})
}
