package query

import (
	"context"
	"sort"
	"time"

	"cgraph/internal/store"
)

// NeighborGroup buckets edges by direction for neighbors().
type NeighborGroup struct {
	Direction string       `json:"direction"`
	Edges     []store.Edge `json:"edges"`
}

// NeighborsOptions are the parameters of neighbors().
type NeighborsOptions struct {
	QualName  string
	Direction store.Direction
	Kinds     []store.EdgeKind
	Limit     int
}

// NeighborsResult is the response for neighbors().
type NeighborsResult struct {
	Groups     []NeighborGroup `json:"groups"`
	Provenance *Provenance     `json:"provenance"`
	NextHops   []Hop           `json:"next_hops"`
}

// Neighbors implements neighbors(symbol, direction, kinds, limit):
// adjacent edges grouped by direction (spec §4.H).
func (e *Engine) Neighbors(ctx context.Context, opts NeighborsOptions) (*NeighborsResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Direction == "" {
		opts.Direction = store.Both
	}

	sym, err := e.db.GetSymbolByQualName(opts.QualName)
	if err != nil || sym == nil {
		return &NeighborsResult{Provenance: e.buildProvenance(state, start, nil)}, err
	}

	var groups []NeighborGroup
	dirs := []store.Direction{opts.Direction}
	if opts.Direction == store.Both {
		dirs = []store.Direction{store.Outgoing, store.Incoming}
	}
	for _, dir := range dirs {
		edges, err := e.db.GetEdgesForSymbol(sym.ID, dir, opts.Kinds, opts.Limit)
		if err != nil {
			return nil, err
		}
		sortEdgesDeterministic(edges)
		groups = append(groups, NeighborGroup{Direction: string(dir), Edges: edges})
	}

	return &NeighborsResult{
		Groups:     groups,
		Provenance: e.buildProvenance(state, start, nil),
		NextHops: []Hop{
			{Method: "subgraph", Params: map[string]interface{}{"seeds": []string{opts.QualName}, "depth": 2}, Reason: "expand into a bounded subgraph"},
		},
	}, nil
}

func sortEdgesDeterministic(edges []store.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Kind != edges[j].Kind {
			return edges[i].Kind < edges[j].Kind
		}
		return edges[i].ID < edges[j].ID
	})
}

// SubgraphNode is one node reached by subgraph()'s BFS.
type SubgraphNode struct {
	Symbol store.Symbol `json:"symbol"`
	Layer  int          `json:"layer"`
}

// SubgraphOptions are the parameters of subgraph().
type SubgraphOptions struct {
	Seeds    []string
	Depth    int
	MaxNodes int
}

// SubgraphResult is the response for subgraph().
type SubgraphResult struct {
	Nodes      []SubgraphNode `json:"nodes"`
	Edges      []store.Edge   `json:"edges"`
	Truncated  bool           `json:"truncated"`
	Provenance *Provenance    `json:"provenance"`
	NextHops   []Hop          `json:"next_hops"`
}

// Subgraph implements subgraph(seeds[], depth, max_nodes): a multi-root
// bounded BFS ordered by BFS layer then qualname, with deterministic
// truncation at max_nodes (spec §4.H).
func (e *Engine) Subgraph(ctx context.Context, opts SubgraphOptions) (*SubgraphResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Depth <= 0 {
		opts.Depth = 2
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = 200
	}

	visited := map[int64]int{}
	var frontier []store.Symbol
	for _, qn := range opts.Seeds {
		sym, err := e.db.GetSymbolByQualName(qn)
		if err != nil || sym == nil {
			continue
		}
		if _, ok := visited[sym.ID]; !ok {
			visited[sym.ID] = 0
			frontier = append(frontier, *sym)
		}
	}

	var nodes []SubgraphNode
	var edgesOut []store.Edge
	truncated := false
	for _, sym := range frontier {
		nodes = append(nodes, SubgraphNode{Symbol: sym, Layer: 0})
	}

	for layer := 1; layer <= opts.Depth && len(frontier) > 0 && !truncated; layer++ {
		var next []store.Symbol
		sort.Slice(frontier, func(i, j int) bool { return frontier[i].QualName < frontier[j].QualName })
		for _, sym := range frontier {
			edges, err := e.db.GetEdgesForSymbol(sym.ID, store.Both, nil, 100)
			if err != nil {
				continue
			}
			for _, edge := range edges {
				if len(nodes) >= opts.MaxNodes {
					truncated = true
					break
				}
				otherID, ok := otherEndpoint(edge, sym.ID)
				if !ok {
					continue
				}
				if _, seen := visited[otherID]; seen {
					edgesOut = append(edgesOut, edge)
					continue
				}
				other, err := e.db.GetSymbolByID(otherID)
				if err != nil || other == nil {
					continue
				}
				visited[otherID] = layer
				nodes = append(nodes, SubgraphNode{Symbol: *other, Layer: layer})
				edgesOut = append(edgesOut, edge)
				next = append(next, *other)
			}
			if truncated {
				break
			}
		}
		frontier = next
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Layer != nodes[j].Layer {
			return nodes[i].Layer < nodes[j].Layer
		}
		return nodes[i].Symbol.QualName < nodes[j].Symbol.QualName
	})
	if len(nodes) > opts.MaxNodes {
		nodes = nodes[:opts.MaxNodes]
		truncated = true
	}

	return &SubgraphResult{
		Nodes: nodes, Edges: edgesOut, Truncated: truncated,
		Provenance: e.buildProvenance(state, start, nil),
	}, nil
}

func otherEndpoint(e store.Edge, from int64) (int64, bool) {
	if e.SourceSymbolID != nil && *e.SourceSymbolID != from {
		return *e.SourceSymbolID, true
	}
	if e.TargetSymbolID != nil && *e.TargetSymbolID != from {
		return *e.TargetSymbolID, true
	}
	return 0, false
}

// ReferencesOptions are the parameters of references().
type ReferencesOptions struct {
	QualName  string
	Direction store.Direction
	Limit     int
}

// ReferencesResult is the response for references().
type ReferencesResult struct {
	Edges      []store.Edge `json:"edges"`
	Provenance *Provenance  `json:"provenance"`
	NextHops   []Hop        `json:"next_hops"`
}

// References implements references(symbol, direction): incoming resolution
// uses exact target_symbol_id first, then target_qualname LIKE suffix
// match as a fallback (spec §4.H).
func (e *Engine) References(ctx context.Context, opts ReferencesOptions) (*ReferencesResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Direction == "" {
		opts.Direction = store.Incoming
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	sym, err := e.db.GetSymbolByQualName(opts.QualName)
	if err != nil || sym == nil {
		return &ReferencesResult{Provenance: e.buildProvenance(state, start, nil)}, err
	}

	var edges []store.Edge
	if opts.Direction == store.Incoming || opts.Direction == store.Both {
		exact, err := e.db.GetEdgesForSymbol(sym.ID, store.Incoming, nil, opts.Limit)
		if err != nil {
			return nil, err
		}
		edges = append(edges, exact...)
		if len(edges) < opts.Limit {
			fallback, err := e.db.GetIncomingEdgesByQualNameSuffix(opts.QualName, opts.Limit-len(edges))
			if err == nil {
				edges = append(edges, fallback...)
			}
		}
	}
	if opts.Direction == store.Outgoing || opts.Direction == store.Both {
		out, err := e.db.GetEdgesForSymbol(sym.ID, store.Outgoing, nil, opts.Limit)
		if err != nil {
			return nil, err
		}
		edges = append(edges, out...)
	}
	sortEdgesDeterministic(edges)

	return &ReferencesResult{
		Edges:      edges,
		Provenance: e.buildProvenance(state, start, nil),
	}, nil
}

// OpenFileOptions are the parameters of open_file.
type OpenFileOptions struct {
	Path      string
	StartLine int
	EndLine   int
}

// OpenFileResult is the response for open_file.
type OpenFileResult struct {
	Path       string      `json:"path"`
	Content    string      `json:"content"`
	Provenance *Provenance `json:"provenance"`
}

// OpenFile returns a line range from a live file, path-validated to lie
// under the repo root (spec §4.I: "path containment within the repo root").
func (e *Engine) OpenFile(ctx context.Context, opts OpenFileOptions) (*OpenFileResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}

	content, err := readFileLines(e.repoRoot, opts.Path, opts.StartLine, opts.EndLine)
	if err != nil {
		return nil, err
	}
	return &OpenFileResult{Path: opts.Path, Content: content, Provenance: e.buildProvenance(state, start, nil)}, nil
}
