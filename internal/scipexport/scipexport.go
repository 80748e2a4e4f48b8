// Package scipexport converts a pinned graph version into a SCIP index,
// the interchange format consumed by SCIP-aware editors and code
// intelligence tools (export_scip).
package scipexport

import (
	"fmt"
	"os"
	"sort"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"cgraph/internal/store"
)

const (
	toolName = "cgraph"

	symbolRoleDefinition int32 = 1
)

// kindCode maps a symbol kind onto the numeric SCIP SymbolInformation.Kind
// codes (function=6, method=9, class=1, interface=2, enum=3, field=11,
// property=10, variable=7, constant=8, namespace=19, package=20, type=21 —
// the same numbering the teacher's own SCIP loader switches on).
func kindCode(k store.SymbolKind) int32 {
	switch k {
	case store.KindClass, store.KindStruct:
		return 1
	case store.KindInterface, store.KindTrait:
		return 2
	case store.KindEnum:
		return 3
	case store.KindFunction:
		return 6
	case store.KindVariable:
		return 7
	case store.KindField:
		return 11
	case store.KindProperty:
		return 10
	case store.KindMethod, store.KindRPCMethod:
		return 9
	case store.KindNamespace, store.KindModule:
		return 19
	case store.KindProtoMsg, store.KindProtoSvc, store.KindRPCService:
		return 20
	default:
		return 0
	}
}

// descriptorSuffix follows the SCIP convention the teacher's ids.go parses:
// "()." for callables, "#" for types, "." for everything else.
func descriptorSuffix(k store.SymbolKind) string {
	switch k {
	case store.KindFunction, store.KindMethod, store.KindRPCMethod:
		return "()."
	case store.KindClass, store.KindStruct, store.KindInterface, store.KindTrait, store.KindEnum:
		return "#"
	default:
		return "."
	}
}

// symbolID builds a stable, globally unique SCIP identifier for sym,
// following the "<scheme> <manager> <package> <descriptor>" shape (spec
// GLOSSARY's stable_id concept mapped into SCIP's own identifier grammar).
func symbolID(sym store.Symbol) string {
	return fmt.Sprintf("cgraph-export graph . %s%s", sym.QualName, descriptorSuffix(sym.Kind))
}

// Build assembles a SCIP index covering every live file and symbol at
// graphVersion, wiring CALLS edges into symbol relationships so SCIP
// consumers can walk the call graph.
func Build(db *store.DB, graphVersion int64, projectRoot string) (*scippb.Index, error) {
	files, err := db.GetAllLiveFiles()
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	idx := &scippb.Index{
		Metadata: &scippb.Metadata{
			ProjectRoot:          projectRoot,
			TextDocumentEncoding: scippb.TextEncoding_UTF8,
			ToolInfo: &scippb.ToolInfo{
				Name:    toolName,
				Version: fmt.Sprintf("%d", graphVersion),
			},
		},
	}

	for _, f := range files {
		symbols, err := db.GetLiveSymbolsForFile(f.ID)
		if err != nil {
			return nil, err
		}
		if len(symbols) == 0 {
			continue
		}
		sort.Slice(symbols, func(i, j int) bool { return symbols[i].StartLine < symbols[j].StartLine })

		doc := &scippb.Document{
			RelativePath: f.Path,
			Language:     f.Language,
		}
		for _, sym := range symbols {
			id := symbolID(sym)

			rels, err := callRelationships(db, sym)
			if err != nil {
				return nil, err
			}

			doc.Symbols = append(doc.Symbols, &scippb.SymbolInformation{
				Symbol:        id,
				DisplayName:   sym.Name,
				Kind:          scippb.SymbolInformation_Kind(kindCode(sym.Kind)),
				Documentation: docLines(sym.Docstring),
				Relationships: rels,
			})
			doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
				Range:       occurrenceRange(sym),
				Symbol:      id,
				SymbolRoles: symbolRoleDefinition,
			})
		}
		idx.Documents = append(idx.Documents, doc)
	}

	return idx, nil
}

// Export writes the SCIP index at graphVersion to path as a protobuf-
// encoded scip.Index (export_scip).
func Export(db *store.DB, path string, graphVersion int64, projectRoot string) error {
	idx, err := Build(db, graphVersion, projectRoot)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to marshal SCIP index: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func docLines(doc string) []string {
	if doc == "" {
		return nil
	}
	return []string{doc}
}

// occurrenceRange converts cgraph's 1-indexed line / 0-indexed column
// positions into SCIP's 0-indexed [startLine, startCol, endLine, endCol].
func occurrenceRange(sym store.Symbol) []int32 {
	startLine := int32(sym.StartLine - 1)
	endLine := int32(sym.EndLine - 1)
	if startLine < 0 {
		startLine = 0
	}
	if endLine < 0 {
		endLine = 0
	}
	if startLine == endLine {
		return []int32{startLine, int32(sym.StartCol), int32(sym.EndCol)}
	}
	return []int32{startLine, int32(sym.StartCol), endLine, int32(sym.EndCol)}
}

// callRelationships surfaces sym's outgoing CALLS edges as SCIP
// relationships, so a SCIP-consuming tool can walk the call graph without
// needing cgraph's own query surface.
func callRelationships(db *store.DB, sym store.Symbol) ([]*scippb.Relationship, error) {
	edges, err := db.GetEdgesForSymbol(sym.ID, store.Outgoing, []store.EdgeKind{store.EdgeCalls}, 200)
	if err != nil {
		return nil, err
	}
	var rels []*scippb.Relationship
	for _, e := range edges {
		if e.TargetSymbolID == nil {
			continue
		}
		target, err := db.GetSymbolByID(*e.TargetSymbolID)
		if err != nil || target == nil {
			continue
		}
		rels = append(rels, &scippb.Relationship{
			Symbol:      symbolID(*target),
			IsReference: true,
		})
	}
	return rels, nil
}
