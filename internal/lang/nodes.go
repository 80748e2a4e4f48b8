//go:build cgo

package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

// findNodes walks node and collects every descendant whose Type() is in
// types, grounded on the teacher's internal/symbols/treesitter.go findNodes.
func findNodes(node *sitter.Node, types []string) []*sitter.Node {
	if node == nil || len(types) == 0 {
		return nil
	}
	var out []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		for _, t := range types {
			if n.Type() == t {
				out = append(out, n)
				break
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return out
}

func nodeText(n *sitter.Node, source []byte) string {
	return string(source[n.StartByte():n.EndByte()])
}

// firstLine returns the node's source truncated at its first newline or
// opening brace, grounded on the teacher's extractSignature.
func firstLine(n *sitter.Node, source []byte) string {
	text := source[n.StartByte():n.EndByte()]
	for i, b := range text {
		if b == '\n' || b == '{' {
			return strings.TrimSpace(string(text[:i]))
		}
	}
	if len(text) < 200 {
		return strings.TrimSpace(string(text))
	}
	return strings.TrimSpace(string(text[:200])) + "..."
}

// functionName extracts a function/method's name node, grounded on the
// teacher's getFunctionName per-language switch.
func functionName(n *sitter.Node, source []byte, l scanner.Language) string {
	var nameNode *sitter.Node
	switch l {
	case scanner.Go:
		nameNode = n.ChildByFieldName("name")
	case scanner.Rust:
		nameNode = n.ChildByFieldName("name")
	default:
		nameNode = n.ChildByFieldName("name")
	}
	if nameNode == nil {
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c != nil && (c.Type() == "identifier" || c.Type() == "property_identifier") {
				nameNode = c
				break
			}
		}
	}
	if nameNode != nil {
		return nodeText(nameNode, source)
	}
	switch n.Type() {
	case "arrow_function", "func_literal", "lambda", "closure_expression":
		return "<anonymous>"
	}
	return ""
}

// classNodeName extracts a class/type/struct node's name, grounded on the
// teacher's getClassName.
func classNodeName(n *sitter.Node, source []byte, l scanner.Language) string {
	if l == scanner.Go {
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c != nil && c.Type() == "type_spec" {
				if nm := c.ChildByFieldName("name"); nm != nil {
					return nodeText(nm, source)
				}
			}
		}
		return ""
	}
	if nm := n.ChildByFieldName("name"); nm != nil {
		return nodeText(nm, source)
	}
	if l == scanner.Rust && n.Type() == "impl_item" {
		if t := n.ChildByFieldName("type"); t != nil && t.Type() == "type_identifier" {
			return nodeText(t, source)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c != nil && c.Type() == "type_identifier" {
				return nodeText(c, source)
			}
		}
	}
	return ""
}

// classKind maps a class/type node to the closed SymbolKind set, grounded
// on the teacher's getClassKind.
func classKind(n *sitter.Node, l scanner.Language) store.SymbolKind {
	switch l {
	case scanner.Go:
		return store.KindStruct
	case scanner.JavaScript, scanner.TypeScript, scanner.TSX:
		if n.Type() == "interface_declaration" {
			return store.KindInterface
		}
		return store.KindClass
	case scanner.Python:
		return store.KindClass
	case scanner.Rust:
		switch n.Type() {
		case "trait_item":
			return store.KindTrait
		case "enum_item":
			return store.KindEnum
		default:
			return store.KindStruct
		}
	case scanner.Java:
		switch n.Type() {
		case "interface_declaration":
			return store.KindInterface
		case "enum_declaration":
			return store.KindEnum
		default:
			return store.KindClass
		}
	}
	return store.KindClass
}

// importTarget extracts the imported module path/string literal from an
// import node, best-effort per language.
func importTarget(n *sitter.Node, source []byte, l scanner.Language) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "interpreted_string_literal", "string", "string_literal":
			return strings.Trim(nodeText(c, source), "\"'")
		case "dotted_name", "identifier", "scoped_identifier":
			return nodeText(c, source)
		}
	}
	return strings.TrimSpace(nodeText(n, source))
}

// callTarget extracts the callee expression text from a call node, used as
// the unresolved target_qualname a CALLS edge resolves against later
// (spec §4.D two-phase edge resolution).
func callTarget(n *sitter.Node, source []byte, l scanner.Language) string {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		fn = n.Child(0)
	}
	if fn == nil {
		return ""
	}
	text := nodeText(fn, source)
	if idx := strings.LastIndexByte(text, '.'); idx >= 0 {
		return text[idx+1:]
	}
	return text
}

// firstChildOfType returns n's first direct child whose Type() is t, or
// nil. Used where a grammar exposes a construct as an unnamed/untagged
// child rather than through ChildByFieldName (e.g. JS/TS class_heritage).
func firstChildOfType(n *sitter.Node, t string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.Type() == t {
			return c
		}
	}
	return nil
}

// sameNode compares two nodes by byte range rather than pointer identity —
// go-tree-sitter hands back a fresh *Node value from every Child() call.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// mkEdge builds an ExtractedEdge whose evidence is n's own source text,
// used by the inheritance/type-ref/route extractors below.
func mkEdge(kind store.EdgeKind, sourceQual, targetQual string, n *sitter.Node, source []byte, confidence float64) ExtractedEdge {
	return ExtractedEdge{
		Kind: kind, SourceQualName: sourceQual, TargetQualName: simplifyTypeRef(targetQual),
		Evidence: nodeText(n, source), EvidenceStartLine: int(n.StartPoint().Row) + 1,
		EvidenceEndLine: int(n.EndPoint().Row) + 1, Confidence: confidence,
	}
}

// simplifyTypeRef trims a type reference down to its bare name so it has a
// chance of matching a symbol qualname's suffix (spec §4.E step 2c): drops
// generic/type-argument lists, then a package/module qualifier written
// with "::" or ".".
func simplifyTypeRef(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, "<[("); idx > 0 {
		text = text[:idx]
	}
	if idx := strings.LastIndex(text, "::"); idx >= 0 {
		text = text[idx+2:]
	}
	if idx := strings.LastIndexByte(text, '.'); idx >= 0 {
		text = text[idx+1:]
	}
	return strings.TrimSpace(strings.TrimPrefix(text, "*"))
}

// primitiveTypeNames are excluded from TYPE_REF extraction — they can
// never resolve to a symbol, so emitting them would just be noise.
var primitiveTypeNames = map[string]bool{
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float32": true, "float64": true, "bool": true, "string": true, "byte": true,
	"rune": true, "error": true, "void": true, "any": true, "unknown": true,
	"never": true, "number": true, "boolean": true, "undefined": true, "null": true,
	"str": true, "self": true, "Self": true, "object": true, "var": true,
}
