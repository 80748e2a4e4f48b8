//go:build cgo

package lang

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"cgraph/internal/identity"
	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

// nodeTypes is the per-language lookup table every extractor shares,
// grounded on the teacher's internal/complexity/treesitter.go and
// internal/symbols/treesitter.go closed switch statements.
type nodeTypes struct {
	functionTypes []string
	classTypes    []string
	methodTypes   []string
	importTypes   []string
	callTypes     []string
	decisionTypes []string
}

var tables = map[scanner.Language]nodeTypes{
	scanner.Go: {
		functionTypes: []string{"function_declaration", "method_declaration"},
		classTypes:    []string{"type_declaration"},
		importTypes:   []string{"import_spec"},
		callTypes:     []string{"call_expression"},
		decisionTypes: []string{"if_statement", "for_statement", "expression_case", "type_case", "select_statement", "communication_case", "binary_expression"},
	},
	scanner.Python: {
		functionTypes: []string{"function_definition"},
		classTypes:    []string{"class_definition"},
		methodTypes:   []string{"function_definition"},
		importTypes:   []string{"import_statement", "import_from_statement"},
		callTypes:     []string{"call"},
		decisionTypes: []string{"if_statement", "elif_clause", "for_statement", "while_statement", "except_clause", "with_statement", "boolean_operator", "conditional_expression"},
	},
	scanner.JavaScript: {
		functionTypes: []string{"function_declaration", "arrow_function", "generator_function_declaration"},
		classTypes:    []string{"class_declaration"},
		methodTypes:   []string{"method_definition"},
		importTypes:   []string{"import_statement"},
		callTypes:     []string{"call_expression"},
		decisionTypes: []string{"if_statement", "for_statement", "for_in_statement", "while_statement", "do_statement", "switch_case", "catch_clause", "ternary_expression", "binary_expression"},
	},
	scanner.TypeScript: {
		functionTypes: []string{"function_declaration", "arrow_function", "generator_function_declaration"},
		classTypes:    []string{"class_declaration", "interface_declaration"},
		methodTypes:   []string{"method_definition"},
		importTypes:   []string{"import_statement"},
		callTypes:     []string{"call_expression"},
		decisionTypes: []string{"if_statement", "for_statement", "for_in_statement", "while_statement", "do_statement", "switch_case", "catch_clause", "ternary_expression", "binary_expression"},
	},
	scanner.TSX: {
		functionTypes: []string{"function_declaration", "arrow_function", "generator_function_declaration"},
		classTypes:    []string{"class_declaration", "interface_declaration"},
		methodTypes:   []string{"method_definition"},
		importTypes:   []string{"import_statement"},
		callTypes:     []string{"call_expression"},
		decisionTypes: []string{"if_statement", "for_statement", "for_in_statement", "while_statement", "do_statement", "switch_case", "catch_clause", "ternary_expression", "binary_expression"},
	},
	scanner.Java: {
		functionTypes: nil,
		classTypes:    []string{"class_declaration", "interface_declaration", "enum_declaration"},
		methodTypes:   []string{"method_declaration", "constructor_declaration"},
		importTypes:   []string{"import_declaration"},
		callTypes:     []string{"method_invocation"},
		decisionTypes: []string{"if_statement", "for_statement", "enhanced_for_statement", "while_statement", "do_statement", "switch_expression", "catch_clause", "ternary_expression", "binary_expression"},
	},
	scanner.Rust: {
		functionTypes: []string{"function_item"},
		classTypes:    []string{"struct_item", "enum_item", "trait_item", "impl_item"},
		methodTypes:   []string{"function_item"},
		importTypes:   []string{"use_declaration"},
		callTypes:     []string{"call_expression"},
		decisionTypes: []string{"if_expression", "match_expression", "match_arm", "while_expression", "loop_expression", "for_expression", "binary_expression"},
	},
}

func getSitterLanguage(l scanner.Language) *sitter.Language {
	switch l {
	case scanner.Go:
		return golang.GetLanguage()
	case scanner.Python:
		return python.GetLanguage()
	case scanner.JavaScript:
		return javascript.GetLanguage()
	case scanner.TypeScript:
		return typescript.GetLanguage()
	case scanner.TSX:
		return tsx.GetLanguage()
	case scanner.Java:
		return java.GetLanguage()
	case scanner.Rust:
		return rust.GetLanguage()
	default:
		return nil
	}
}

// treeSitterExtractor implements Extractor once per language by sharing the
// walker below and varying only the node-type table and sitter grammar.
type treeSitterExtractor struct {
	lang       scanner.Language
	extensions []string
}

func (e *treeSitterExtractor) SupportedExtensions() []string { return e.extensions }

func (e *treeSitterExtractor) Extract(source []byte, modulePath string) (ExtractedFile, error) {
	tsLang := getSitterLanguage(e.lang)
	if tsLang == nil {
		return ExtractedFile{}, errUnsupportedLanguage(e.lang)
	}
	parser := sitter.NewParser()
	parser.SetLanguage(tsLang)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return ExtractedFile{}, err
	}
	root := tree.RootNode()
	tbl := tables[e.lang]

	w := &walker{source: source, lang: e.lang, tbl: tbl, modulePath: modulePath}
	w.walkTopLevel(root)
	w.computeMetrics(root)
	return w.result(), nil
}

type errUnsupportedLang struct{ lang scanner.Language }

func (e errUnsupportedLang) Error() string { return "unsupported language: " + string(e.lang) }
func errUnsupportedLanguage(l scanner.Language) error { return errUnsupportedLang{lang: l} }

// walker accumulates symbols/edges/metrics for one file.
type walker struct {
	source     []byte
	lang       scanner.Language
	tbl        nodeTypes
	modulePath string

	symbols []identity.ExtractedSymbol
	edges   []ExtractedEdge
	metrics FileMetrics
}

func (w *walker) result() ExtractedFile {
	return ExtractedFile{Symbols: w.symbols, Edges: w.edges, Metrics: w.metrics}
}

// walkTopLevel extracts module-level symbols: classes (with nested methods),
// top-level functions, and import edges, mirroring the teacher's
// ExtractSource two-pass (functions, then classes+methods) structure.
func (w *walker) walkTopLevel(root *sitter.Node) {
	w.symbols = append(w.symbols, identity.ExtractedSymbol{
		Kind: store.KindModule, Name: w.modulePath, QualName: w.modulePath,
		StartLine: 1, EndLine: int(root.EndPoint().Row) + 1,
	})

	for _, imp := range findNodes(root, w.tbl.importTypes) {
		target := importTarget(imp, w.source, w.lang)
		if target == "" {
			continue
		}
		w.edges = append(w.edges, ExtractedEdge{
			Kind: store.EdgeImports, SourceQualName: w.modulePath, TargetQualName: target,
			Evidence: nodeText(imp, w.source), EvidenceStartLine: int(imp.StartPoint().Row) + 1,
			EvidenceEndLine: int(imp.EndPoint().Row) + 1, Confidence: 0.9,
		})
	}

	switch w.lang {
	case scanner.Go, scanner.JavaScript, scanner.TypeScript, scanner.TSX:
		for _, rf := range callRouteFindings(root, w.source, w.lang, w.tbl, w.modulePath) {
			w.emitRoute(rf.method, rf.path, w.modulePath, rf.node)
		}
	}

	classNodes := findNodes(root, w.tbl.classTypes)
	insideClass := map[*sitter.Node]bool{}
	for _, c := range classNodes {
		for _, d := range findNodes(c, w.tbl.methodTypes) {
			insideClass[d] = true
		}
	}

	for _, fn := range findNodes(root, w.tbl.functionTypes) {
		if insideClass[fn] {
			continue
		}
		w.extractFunction(fn, w.modulePath, "")
	}

	for _, cls := range classNodes {
		name := classNodeName(cls, w.source, w.lang)
		if name == "" {
			continue
		}
		qual := w.modulePath + "." + name
		heritageEdges := extractInheritanceEdges(cls, w.source, w.lang, qual)
		kind := classKind(cls, w.lang)
		if isRPCServiceImpl(heritageEdges) {
			kind = store.KindRPCService
		}
		w.symbols = append(w.symbols, identity.ExtractedSymbol{
			Kind: kind, Name: name, QualName: qual,
			Signature: firstLine(cls, w.source), StartLine: int(cls.StartPoint().Row) + 1,
			EndLine: int(cls.EndPoint().Row) + 1, StartCol: int(cls.StartPoint().Column), EndCol: int(cls.EndPoint().Column),
		})
		w.edges = append(w.edges, ExtractedEdge{
			Kind: store.EdgeContains, SourceQualName: w.modulePath, TargetQualName: qual, Confidence: 1.0,
		})
		w.edges = append(w.edges, heritageEdges...)
		for _, m := range findNodes(cls, w.tbl.methodTypes) {
			w.extractFunction(m, qual, qual)
		}
	}
}

func (w *walker) extractFunction(node *sitter.Node, containerQual, methodOf string) {
	name := functionName(node, w.source, w.lang)
	if name == "" {
		return
	}
	qual := containerQual
	if methodOf != "" {
		qual = methodOf + "." + name
	} else {
		qual = w.modulePath + "." + name
	}
	kind := store.KindFunction
	if methodOf != "" || node.Type() == "method_declaration" {
		kind = store.KindMethod
	}
	w.symbols = append(w.symbols, identity.ExtractedSymbol{
		Kind: kind, Name: name, QualName: qual, Signature: firstLine(node, w.source),
		StartLine: int(node.StartPoint().Row) + 1, EndLine: int(node.EndPoint().Row) + 1,
		StartCol: int(node.StartPoint().Column), EndCol: int(node.EndPoint().Column),
	})
	parentQual := w.modulePath
	if methodOf != "" {
		parentQual = methodOf
	}
	w.edges = append(w.edges, ExtractedEdge{Kind: store.EdgeContains, SourceQualName: parentQual, TargetQualName: qual, Confidence: 1.0})
	w.edges = append(w.edges, extractTypeRefEdges(node, w.source, w.lang, qual)...)
	if method, path, ok := decoratorRoute(node, w.source, w.lang); ok {
		w.emitRoute(method, path, qual, node)
	}

	for _, call := range findNodes(node, w.tbl.callTypes) {
		target := callTarget(call, w.source, w.lang)
		if target == "" {
			continue
		}
		w.edges = append(w.edges, ExtractedEdge{
			Kind: store.EdgeCalls, SourceQualName: qual, TargetQualName: target,
			Evidence: nodeText(call, w.source), EvidenceStartLine: int(call.StartPoint().Row) + 1,
			EvidenceEndLine: int(call.EndPoint().Row) + 1, Confidence: 0.8,
		})
	}
}

// computeMetrics sums LOC and a coarse cyclomatic count, grounded on the
// teacher's GetDecisionNodeTypes + complexity accumulation pattern.
func (w *walker) computeMetrics(root *sitter.Node) {
	loc := int(root.EndPoint().Row) + 1
	decisions := len(findNodes(root, w.tbl.decisionTypes))
	tokens := map[string]int{}
	for _, s := range w.symbols {
		tokens[string(s.Kind)]++
	}
	w.metrics = FileMetrics{LinesOfCode: loc, CyclomaticTotal: decisions + 1, SymbolTokenVector: tokens}
}
