//go:build cgo

package lang

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	sqlgrammar "github.com/smacker/go-tree-sitter/sql"

	"cgraph/internal/identity"
	"cgraph/internal/store"
)

// sqlExtractor recovers CREATE TABLE / CREATE VIEW / CREATE FUNCTION /
// CREATE PROCEDURE declarations from a .sql file. Grounded on the pack's
// own tree-sitter SQL usage (services/code_buddy/ast/sql_parser.go's
// create_table + object_reference walk), generalized here to also cover
// stored-procedure definitions so KindSQLProc has a producer.
type sqlExtractor struct {
	extensions []string
}

func (e *sqlExtractor) SupportedExtensions() []string { return e.extensions }

func (e *sqlExtractor) Extract(source []byte, modulePath string) (ExtractedFile, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(sqlgrammar.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return Fallback(modulePath, source), nil
	}
	root := tree.RootNode()

	loc := int(root.EndPoint().Row) + 1
	w := &sqlWalker{source: source, modulePath: modulePath}
	w.symbols = append(w.symbols, identity.ExtractedSymbol{
		Kind: store.KindModule, Name: modulePath, QualName: modulePath, StartLine: 1, EndLine: loc,
	})
	w.walk(root)

	return ExtractedFile{
		Symbols: w.symbols, Edges: w.edges,
		Metrics: FileMetrics{LinesOfCode: loc},
	}, nil
}

type sqlWalker struct {
	source     []byte
	modulePath string
	symbols    []identity.ExtractedSymbol
	edges      []ExtractedEdge
}

var sqlProcNodeTypes = map[string]bool{
	"create_function": true, "create_procedure": true, "create_trigger": true,
}

var sqlTableNodeTypes = map[string]bool{
	"create_table": true, "create_view": true, "create_materialized_view": true,
}

func (w *sqlWalker) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch {
	case sqlTableNodeTypes[n.Type()]:
		w.emit(n, store.KindSQLTable)
		return
	case sqlProcNodeTypes[n.Type()]:
		w.emit(n, store.KindSQLProc)
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i))
	}
}

func (w *sqlWalker) emit(n *sitter.Node, kind store.SymbolKind) {
	name := sqlObjectName(n, w.source)
	if name == "" {
		return
	}
	qual := w.modulePath + "." + name
	w.symbols = append(w.symbols, identity.ExtractedSymbol{
		Kind: kind, Name: name, QualName: qual, Signature: firstLine(n, w.source),
		StartLine: int(n.StartPoint().Row) + 1, EndLine: int(n.EndPoint().Row) + 1,
		StartCol: int(n.StartPoint().Column), EndCol: int(n.EndPoint().Column),
	})
	w.edges = append(w.edges, ExtractedEdge{
		Kind: store.EdgeContains, SourceQualName: w.modulePath, TargetQualName: qual, Confidence: 1.0,
	})
}

// sqlObjectName finds the declared object's name: the standard shape is an
// object_reference node carrying an optional database/schema plus a name
// field; a handful of statement kinds (create_schema, create_role, ...)
// name the object with a bare identifier instead.
func sqlObjectName(n *sitter.Node, source []byte) string {
	if obj := findFirstOfType(n, "object_reference"); obj != nil {
		if nm := obj.ChildByFieldName("name"); nm != nil {
			return nodeText(nm, source)
		}
		return nodeText(obj, source)
	}
	if id := findFirstOfType(n, "identifier"); id != nil {
		return nodeText(id, source)
	}
	return ""
}
