package impact

import (
	"context"

	"cgraph/internal/store"
)

// structuralEdgeKinds are the kinds the Direct layer's BFS follows — the
// same edges trace_flow treats as "structural" before a language boundary
// widens the filter (spec §4.H trace_flow, §4.H Direct impact layer).
var structuralEdgeKinds = []store.EdgeKind{
	store.EdgeCalls, store.EdgeImports, store.EdgeExtends,
	store.EdgeImplements, store.EdgeInherits, store.EdgeTypeRef,
}

// DirectLayer is a bounded BFS over structural edges with per-hop
// confidence decay (spec §4.H: "BFS over structural edges with per-hop
// confidence decay").
type DirectLayer struct{}

func (DirectLayer) Name() string         { return "direct" }
func (DirectLayer) DefaultEnabled() bool { return true }

func (DirectLayer) Run(ctx context.Context, db *store.DB, seed *store.Symbol, cfg Config) (LayerResult, error) {
	cfg = cfg.withDefaults()
	dir := cfg.Direction.storeDirection()

	visited := map[int64]bool{seed.ID: true}
	frontier := []int64{seed.ID}
	var items []Item

	for depth := 1; depth <= cfg.MaxDepth && len(items) < cfg.MaxNodes; depth++ {
		decay := 1.0
		for i := 0; i < depth; i++ {
			decay *= cfg.PerHopDecay
		}

		var next []int64
		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return LayerResult{Layer: "direct", Items: items}, err
			}
			edges, err := db.GetEdgesForSymbol(id, dir, structuralEdgeKinds, cfg.MaxNodes)
			if err != nil {
				return LayerResult{Layer: "direct"}, err
			}
			for _, e := range edges {
				other := otherEnd(e, id)
				if other == nil || visited[*other] {
					continue
				}
				visited[*other] = true
				next = append(next, *other)

				sym, err := db.GetSymbolByID(*other)
				if err != nil || sym == nil {
					continue
				}
				path, _ := db.FilePathOf(sym.FileID)
				items = append(items, Item{
					SymbolID: sym.ID, QualName: sym.QualName, FilePath: path,
					Distance: depth, Confidence: decay * e.Confidence,
					Evidence: string(e.Kind) + " from " + seed.QualName,
				})
				if len(items) >= cfg.MaxNodes {
					break
				}
			}
			if len(items) >= cfg.MaxNodes {
				break
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	return LayerResult{Layer: "direct", Items: items}, nil
}

func otherEnd(e store.Edge, from int64) *int64 {
	if e.SourceSymbolID != nil && *e.SourceSymbolID != from {
		return e.SourceSymbolID
	}
	if e.TargetSymbolID != nil && *e.TargetSymbolID != from {
		return e.TargetSymbolID
	}
	return nil
}
