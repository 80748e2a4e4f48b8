package query

import (
	"context"
	"time"

	"cgraph/internal/diff"
	"cgraph/internal/flow"
	"cgraph/internal/impact"
	"cgraph/internal/repomap"
)

// AnalyzeImpactOptions are the parameters of analyze_impact.
type AnalyzeImpactOptions struct {
	QualName  string
	Direction impact.ImpactDirection
	MaxDepth  int
	MaxNodes  int
}

// AnalyzeImpactResult is the response for analyze_impact.
type AnalyzeImpactResult struct {
	Result     *impact.Result `json:"result"`
	Provenance *Provenance    `json:"provenance"`
	NextHops   []Hop          `json:"next_hops"`
}

// AnalyzeImpact wraps internal/impact's multi-layer blast-radius analysis
// with RepoState and next_hops (spec §4.H analyze_impact).
func (e *Engine) AnalyzeImpact(ctx context.Context, opts AnalyzeImpactOptions) (*AnalyzeImpactResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Direction == "" {
		opts.Direction = impact.Downstream
	}

	result, err := impact.AnalyzeImpact(ctx, e.db, nil, opts.QualName, impact.Config{
		Direction: opts.Direction,
		MaxDepth:  opts.MaxDepth,
		MaxNodes:  opts.MaxNodes,
	})
	if err != nil {
		return nil, err
	}

	var warnings []string
	for _, le := range result.Errors {
		warnings = append(warnings, le.Error())
	}

	var hops []Hop
	if len(result.Items) > 0 {
		hops = append(hops, Hop{
			Method: "open_symbol",
			Params: map[string]interface{}{"qualname": result.Items[0].QualName},
			Reason: "inspect the highest-confidence impacted symbol",
		})
	}

	return &AnalyzeImpactResult{
		Result:     result,
		Provenance: e.buildProvenance(state, start, warnings),
		NextHops:   hops,
	}, nil
}

// AnalyzeDiffResult is the response for analyze_diff.
type AnalyzeDiffResult struct {
	Report     *diff.Report `json:"report"`
	Provenance *Provenance  `json:"provenance"`
	NextHops   []Hop        `json:"next_hops"`
}

// AnalyzeDiff wraps internal/diff's unified-diff review pipeline (spec
// §4.H analyze_diff).
func (e *Engine) AnalyzeDiff(ctx context.Context, diffText string) (*AnalyzeDiffResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}

	report, err := diff.AnalyzeDiff(ctx, e.db, diffText)
	if err != nil {
		return nil, err
	}

	var hops []Hop
	for _, sym := range report.Symbols {
		if len(sym.Risks) > 0 {
			hops = append(hops, Hop{
				Method: "analyze_impact",
				Params: map[string]interface{}{"qualname": sym.QualName, "direction": "upstream"},
				Reason: "check blast radius of a risky change",
			})
			break
		}
	}

	return &AnalyzeDiffResult{
		Report:     report,
		Provenance: e.buildProvenance(state, start, nil),
		NextHops:   hops,
	}, nil
}

// TraceFlowOptions are the parameters of trace_flow.
type TraceFlowOptions struct {
	QualName  string
	Direction flow.Direction
	MaxDepth  int
	MaxNodes  int
}

// TraceFlowResult is the response for trace_flow.
type TraceFlowResult struct {
	Hops       []flow.Hop  `json:"hops"`
	Provenance *Provenance `json:"provenance"`
	NextHops   []Hop       `json:"next_hops"`
}

// TraceFlow wraps internal/flow's boundary-aware BFS (spec §4.H
// trace_flow).
func (e *Engine) TraceFlow(ctx context.Context, opts TraceFlowOptions) (*TraceFlowResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Direction == "" {
		opts.Direction = flow.Downstream
	}

	seed, err := e.db.GetSymbolByQualName(opts.QualName)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		return &TraceFlowResult{Provenance: e.buildProvenance(state, start, nil)}, nil
	}

	hops, err := flow.Trace(ctx, e.db, seed, flow.Config{
		Direction: opts.Direction,
		MaxDepth:  opts.MaxDepth,
		MaxNodes:  opts.MaxNodes,
	})
	if err != nil {
		return nil, err
	}

	var nextHops []Hop
	for _, h := range hops {
		if h.Boundary != "" {
			nextHops = append(nextHops, Hop{
				Method: "gather_context",
				Params: map[string]interface{}{"seeds": []map[string]interface{}{{"kind": string(SeedSymbol), "qualname": h.QualName}}},
				Reason: "inspect the code at a crossed language boundary",
			})
			break
		}
	}

	return &TraceFlowResult{
		Hops:       hops,
		Provenance: e.buildProvenance(state, start, nil),
		NextHops:   nextHops,
	}, nil
}

// FindTestsForResult is the response for find_tests_for.
type FindTestsForResult struct {
	Tests      []impact.Item `json:"tests"`
	Provenance *Provenance   `json:"provenance"`
}

// FindTestsFor implements find_tests_for by running impact.TestLayer in
// isolation (spec §6 "Analysis"; §4.H's test layer already implements
// exactly this operation as one facet of analyze_impact).
func (e *Engine) FindTestsFor(ctx context.Context, qualName string) (*FindTestsForResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}

	seed, err := e.db.GetSymbolByQualName(qualName)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		return &FindTestsForResult{Provenance: e.buildProvenance(state, start, nil)}, nil
	}

	result, err := impact.TestLayer{}.Run(ctx, e.db, seed, impact.Config{})
	if err != nil {
		return nil, err
	}

	return &FindTestsForResult{Tests: result.Items, Provenance: e.buildProvenance(state, start, nil)}, nil
}

// RepoMapOptions are the parameters of repo_map.
type RepoMapOptions struct {
	BudgetBytes int
}

// RepoMapResult is the response for repo_map.
type RepoMapResult struct {
	Map        *repomap.Map `json:"map"`
	Provenance *Provenance  `json:"provenance"`
	NextHops   []Hop        `json:"next_hops"`
}

// RepoMap wraps internal/repomap's module/edge digest (spec §4.H
// repo_map).
func (e *Engine) RepoMap(ctx context.Context, opts RepoMapOptions) (*RepoMapResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}

	m, err := repomap.Build(e.db, opts.BudgetBytes)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if m.Truncated {
		warnings = append(warnings, "repo_map was truncated to fit budget_bytes")
	}

	return &RepoMapResult{
		Map:        m,
		Provenance: e.buildProvenance(state, start, warnings),
	}, nil
}
