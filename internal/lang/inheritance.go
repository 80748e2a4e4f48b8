//go:build cgo

package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

// isRPCServiceImpl reports whether a class's own heritage names one of the
// generated base types the mainstream gRPC codegens use for a service
// implementation to extend/implement/embed: protoc-gen-go's
// UnimplementedXxxServer, grpc-java's XxxGrpc.XxxImplBase, and grpcio's
// XxxServicer. Matched against the heritage edge's raw evidence text
// (before simplifyTypeRef strips the generated wrapper's package
// qualifier) so the "Unimplemented" prefix survives the check.
func isRPCServiceImpl(edges []ExtractedEdge) bool {
	for _, e := range edges {
		switch e.Kind {
		case store.EdgeExtends, store.EdgeImplements, store.EdgeInherits:
		default:
			continue
		}
		text := strings.TrimSpace(e.Evidence)
		switch {
		case strings.Contains(text, "Servicer"):
			return true
		case strings.Contains(text, "ImplBase"):
			return true
		case strings.Contains(text, "Unimplemented") && strings.HasSuffix(text, "Server"):
			return true
		}
	}
	return false
}

// extractInheritanceEdges recovers EXTENDS/IMPLEMENTS/INHERITS edges from a
// class/interface/struct/trait node's own heritage clause, per language.
// Grounded on the shapes each grammar already exposes for this: Python's
// superclasses list, JS/TS class_heritage, Java's superclass/interfaces
// fields, Rust's impl-for-trait, and Go's embedded struct fields.
func extractInheritanceEdges(n *sitter.Node, source []byte, l scanner.Language, qual string) []ExtractedEdge {
	switch l {
	case scanner.Python:
		return pythonBaseEdges(n, source, qual)
	case scanner.JavaScript, scanner.TypeScript, scanner.TSX:
		return jsHeritageEdges(n, source, qual)
	case scanner.Java:
		return javaHeritageEdges(n, source, qual)
	case scanner.Rust:
		return rustImplEdges(n, source, qual)
	case scanner.Go:
		return goEmbeddedEdges(n, source, qual)
	}
	return nil
}

func pythonBaseEdges(n *sitter.Node, source []byte, qual string) []ExtractedEdge {
	args := n.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	var edges []ExtractedEdge
	for i := 0; i < int(args.ChildCount()); i++ {
		c := args.Child(i)
		if c == nil || c.Type() != "identifier" && c.Type() != "attribute" {
			continue
		}
		target := nodeText(c, source)
		if target == "object" {
			continue
		}
		edges = append(edges, mkEdge(store.EdgeExtends, qual, target, c, source, 0.9))
	}
	return edges
}

func jsHeritageEdges(n *sitter.Node, source []byte, qual string) []ExtractedEdge {
	var edges []ExtractedEdge

	heritage := firstChildOfType(n, "class_heritage")
	if heritage != nil {
		if ext := firstChildOfType(heritage, "extends_clause"); ext != nil {
			for i := 0; i < int(ext.ChildCount()); i++ {
				c := ext.Child(i)
				if c == nil || c.Type() != "identifier" && c.Type() != "member_expression" {
					continue
				}
				edges = append(edges, mkEdge(store.EdgeExtends, qual, nodeText(c, source), c, source, 0.9))
			}
		}
		if impl := firstChildOfType(heritage, "implements_clause"); impl != nil {
			for i := 0; i < int(impl.ChildCount()); i++ {
				c := impl.Child(i)
				if c == nil || c.Type() != "type_identifier" && c.Type() != "identifier" && c.Type() != "generic_type" {
					continue
				}
				edges = append(edges, mkEdge(store.EdgeImplements, qual, nodeText(c, source), c, source, 0.9))
			}
		}
	}

	if n.Type() == "interface_declaration" {
		if ext := n.ChildByFieldName("extends_type_clause"); ext != nil {
			for _, tid := range findNodes(ext, []string{"type_identifier", "identifier", "generic_type"}) {
				edges = append(edges, mkEdge(store.EdgeExtends, qual, nodeText(tid, source), tid, source, 0.9))
			}
		} else if ext := firstChildOfType(n, "extends_type_clause"); ext != nil {
			for _, tid := range findNodes(ext, []string{"type_identifier", "identifier", "generic_type"}) {
				edges = append(edges, mkEdge(store.EdgeExtends, qual, nodeText(tid, source), tid, source, 0.9))
			}
		}
	}
	return edges
}

func javaHeritageEdges(n *sitter.Node, source []byte, qual string) []ExtractedEdge {
	var edges []ExtractedEdge
	if sup := n.ChildByFieldName("superclass"); sup != nil {
		for _, tid := range findNodes(sup, []string{"type_identifier", "generic_type"}) {
			edges = append(edges, mkEdge(store.EdgeExtends, qual, nodeText(tid, source), tid, source, 0.9))
		}
	}
	if ifaces := n.ChildByFieldName("interfaces"); ifaces != nil {
		kind := store.EdgeImplements
		if n.Type() == "interface_declaration" {
			kind = store.EdgeExtends
		}
		for _, tid := range findNodes(ifaces, []string{"type_identifier", "generic_type"}) {
			edges = append(edges, mkEdge(kind, qual, nodeText(tid, source), tid, source, 0.9))
		}
	}
	return edges
}

// rustImplEdges recognizes `impl Trait for Type { ... }` blocks: the
// walker visits impl_item as a class-like node whose qual is the target
// type's name (see classNodeName), so here we only need the trait field.
func rustImplEdges(n *sitter.Node, source []byte, qual string) []ExtractedEdge {
	if n.Type() != "impl_item" {
		return nil
	}
	trait := n.ChildByFieldName("trait")
	if trait == nil {
		return nil
	}
	return []ExtractedEdge{mkEdge(store.EdgeImplements, qual, nodeText(trait, source), trait, source, 0.85)}
}

// goEmbeddedEdges treats an unnamed embedded field inside a struct_type as
// Go's closest analog to inheritance, matching store.EdgeInherits (spec
// glossary: INHERITS covers embedding/mixin-style reuse).
func goEmbeddedEdges(n *sitter.Node, source []byte, qual string) []ExtractedEdge {
	var edges []ExtractedEdge
	structType := findFirstOfType(n, "struct_type")
	if structType == nil {
		return nil
	}
	for _, field := range findNodes(structType, []string{"field_declaration"}) {
		if field.ChildByFieldName("name") != nil {
			continue
		}
		typeNode := field.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		target := nodeText(typeNode, source)
		edges = append(edges, mkEdge(store.EdgeInherits, qual, target, field, source, 0.8))
	}
	return edges
}

func findFirstOfType(n *sitter.Node, t string) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == t {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if f := findFirstOfType(n.Child(i), t); f != nil {
			return f
		}
	}
	return nil
}

// extractTypeRefEdges recovers bounded TYPE_REF edges from a function or
// method's parameter and return-type annotations. Bounded to those two
// positions (not every identifier in the body) to keep this a structural
// signal rather than a second, noisier CALLS pass.
func extractTypeRefEdges(n *sitter.Node, source []byte, l scanner.Language, qual string) []ExtractedEdge {
	var typeNodes []*sitter.Node

	switch l {
	case scanner.Go:
		if params := n.ChildByFieldName("parameters"); params != nil {
			for _, p := range findNodes(params, []string{"parameter_declaration", "variadic_parameter_declaration"}) {
				if t := p.ChildByFieldName("type"); t != nil {
					typeNodes = append(typeNodes, t)
				}
			}
		}
		if ret := n.ChildByFieldName("result"); ret != nil {
			typeNodes = append(typeNodes, ret)
		}
	case scanner.TypeScript, scanner.TSX:
		if params := n.ChildByFieldName("parameters"); params != nil {
			for _, p := range findNodes(params, []string{"required_parameter", "optional_parameter"}) {
				if t := p.ChildByFieldName("type"); t != nil {
					typeNodes = append(typeNodes, t)
				}
			}
		}
		if ret := n.ChildByFieldName("return_type"); ret != nil {
			typeNodes = append(typeNodes, ret)
		}
	case scanner.Java:
		if params := n.ChildByFieldName("parameters"); params != nil {
			for _, p := range findNodes(params, []string{"formal_parameter"}) {
				if t := p.ChildByFieldName("type"); t != nil {
					typeNodes = append(typeNodes, t)
				}
			}
		}
		if ret := n.ChildByFieldName("type"); ret != nil {
			typeNodes = append(typeNodes, ret)
		}
	case scanner.Rust:
		if params := n.ChildByFieldName("parameters"); params != nil {
			for _, p := range findNodes(params, []string{"parameter"}) {
				if t := p.ChildByFieldName("type"); t != nil {
					typeNodes = append(typeNodes, t)
				}
			}
		}
		if ret := n.ChildByFieldName("return_type"); ret != nil {
			typeNodes = append(typeNodes, ret)
		}
	default:
		return nil
	}

	var edges []ExtractedEdge
	seen := map[string]bool{}
	for _, t := range typeNodes {
		for _, target := range typeRefTargets(t, source) {
			simplified := simplifyTypeRef(target)
			if simplified == "" || primitiveTypeNames[simplified] || seen[simplified] {
				continue
			}
			seen[simplified] = true
			edges = append(edges, mkEdge(store.EdgeTypeRef, qual, target, t, source, 0.7))
		}
	}
	return edges
}

// typeRefTargets pulls the identifier-like leaves out of a type
// annotation node — a bare type, or each element of a generic/union type.
func typeRefTargets(t *sitter.Node, source []byte) []string {
	leafTypes := []string{
		"type_identifier", "identifier", "scoped_type_identifier",
		"generic_type", "qualified_type",
	}
	nodes := findNodes(t, leafTypes)
	if len(nodes) == 0 {
		return []string{nodeText(t, source)}
	}
	var out []string
	for _, n := range nodes {
		out = append(out, nodeText(n, source))
	}
	return out
}
