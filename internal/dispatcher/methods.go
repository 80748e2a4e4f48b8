package dispatcher

import (
	"context"
	"encoding/json"

	"cgraph/internal/flow"
	"cgraph/internal/impact"
	"cgraph/internal/query"
	"cgraph/internal/scanner"
	"cgraph/internal/store"
)

func buildRegistry() map[string]methodEntry {
	entries := []methodEntry{
		{"help", "describe available methods", handleHelp},
		{"list_methods", "list registered method names", handleListMethods},
		{"list_languages", "list extractor-supported languages", handleListLanguages},

		{"find_symbol", "rank symbols matching a query", handleFindSymbol},
		{"suggest_qualnames", "fuzzy-suggest qualnames", handleSuggestQualNames},
		{"open_symbol", "look up one symbol by qualname", handleOpenSymbol},

		{"neighbors", "adjacent edges of a symbol", handleNeighbors},
		{"subgraph", "bounded BFS from seed symbols", handleSubgraph},
		{"references", "incoming/outgoing edges of a symbol", handleReferences},
		{"open_file", "read a line range of a file", handleOpenFile},

		{"search_text", "search file contents", handleSearchText},
		{"grep", "alias of search_text", handleSearchText},
		{"search_rg", "alias of search_text", handleSearchText},

		{"gather_context", "assemble budgeted context around seeds", handleGatherContext},

		{"analyze_impact", "multi-layer blast-radius analysis", handleAnalyzeImpact},
		{"analyze_diff", "review a unified diff", handleAnalyzeDiff},
		{"trace_flow", "trace a cross-language flow", handleTraceFlow},
		{"find_tests_for", "find tests covering a symbol", handleFindTestsFor},

		{"repo_map", "repository module digest", handleRepoMap},
		{"co_changes", "historical co-change partners", handleCoChanges},
		{"index_status", "current graph version and dirtiness", handleIndexStatus},
		{"changed_files", "working-tree changes vs HEAD", handleChangedFiles},
		{"reindex", "run a full reindex", handleReindex},

		{"dead_symbols", "callable symbols with zero fan-in", handleDeadSymbols},
		{"orphan_tests", "tests that call nothing", handleOrphanTests},
		{"diagnostics_status", "count of files with parse errors", handleDiagnosticsStatus},
		{"export_scip", "export the graph as a SCIP index", handleExportSCIP},
	}

	m := make(map[string]methodEntry, len(entries))
	for _, e := range entries {
		m[e.name] = e
	}
	return m
}

func handleHelp(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	type methodDoc struct {
		Method  string `json:"method"`
		Summary string `json:"summary"`
	}
	var docs []methodDoc
	for _, name := range d.Methods() {
		docs = append(docs, methodDoc{Method: name, Summary: d.methods[name].summary})
	}
	return docs, nil, nil
}

func handleListMethods(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	return d.Methods(), nil, nil
}

func handleListLanguages(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	return languageNames, nil, nil
}

type findSymbolParams struct {
	Query    string `json:"query"`
	Kind     string `json:"kind"`
	Language string `json:"language"`
	Limit    int    `json:"limit"`
}

func handleFindSymbol(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p findSymbolParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("query", p.Query); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.FindSymbol(ctx, query.FindSymbolOptions{Query: p.Query, Kind: p.Kind, Language: p.Language, Limit: p.Limit})
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type suggestQualNamesParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func handleSuggestQualNames(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p suggestQualNamesParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("query", p.Query); err != nil {
		return nil, nil, err
	}
	names, err := d.engine.SuggestQualNames(ctx, p.Query, p.Limit)
	return names, nil, err
}

type openSymbolParams struct {
	QualName string `json:"qualname"`
	Snippet  bool   `json:"snippet"`
}

func handleOpenSymbol(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p openSymbolParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("qualname", p.QualName); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.OpenSymbol(ctx, query.OpenSymbolOptions{QualName: p.QualName, Snippet: p.Snippet})
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type neighborsParams struct {
	QualName  string   `json:"qualname"`
	Direction string   `json:"direction"`
	Kinds     []string `json:"kinds"`
	Limit     int      `json:"limit"`
}

func handleNeighbors(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p neighborsParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("qualname", p.QualName); err != nil {
		return nil, nil, err
	}
	var kinds []store.EdgeKind
	for _, k := range p.Kinds {
		kinds = append(kinds, store.EdgeKind(k))
	}
	res, err := d.engine.Neighbors(ctx, query.NeighborsOptions{
		QualName: p.QualName, Direction: store.Direction(p.Direction), Kinds: kinds, Limit: p.Limit,
	})
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type subgraphParams struct {
	Seeds    []string `json:"seeds"`
	Depth    int      `json:"depth"`
	MaxNodes int      `json:"max_nodes"`
}

func handleSubgraph(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p subgraphParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if len(p.Seeds) == 0 {
		return nil, nil, invalidParams("%q is required", "seeds")
	}
	res, err := d.engine.Subgraph(ctx, query.SubgraphOptions{Seeds: p.Seeds, Depth: p.Depth, MaxNodes: p.MaxNodes})
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type referencesParams struct {
	QualName  string `json:"qualname"`
	Direction string `json:"direction"`
	Limit     int    `json:"limit"`
}

func handleReferences(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p referencesParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("qualname", p.QualName); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.References(ctx, query.ReferencesOptions{QualName: p.QualName, Direction: store.Direction(p.Direction), Limit: p.Limit})
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type openFileParams struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

func handleOpenFile(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p openFileParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("path", p.Path); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.OpenFile(ctx, query.OpenFileOptions{Path: p.Path, StartLine: p.StartLine, EndLine: p.EndLine})
	if err != nil {
		return nil, nil, err
	}
	return res, nil, nil
}

type searchTextParams struct {
	Pattern string `json:"pattern"`
	Limit   int    `json:"limit"`
}

func handleSearchText(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p searchTextParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("pattern", p.Pattern); err != nil {
		return nil, nil, err
	}
	if max := d.cfg.Search.PatternMaxLength; max > 0 && len(p.Pattern) > max {
		return nil, nil, invalidParams("pattern exceeds max length %d", max)
	}
	res, err := d.engine.SearchText(ctx, query.SearchTextOptions{Pattern: p.Pattern, Limit: p.Limit})
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type seedParams struct {
	Kind      string `json:"kind"`
	QualName  string `json:"qualname"`
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Query     string `json:"query"`
}

type gatherContextParams struct {
	Seeds       []seedParams `json:"seeds"`
	BudgetBytes int          `json:"budget_bytes"`
	Strategy    string       `json:"strategy"`
}

func handleGatherContext(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p gatherContextParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if len(p.Seeds) == 0 {
		return nil, nil, invalidParams("%q is required", "seeds")
	}
	seeds := make([]query.Seed, 0, len(p.Seeds))
	for _, s := range p.Seeds {
		seeds = append(seeds, query.Seed{
			Kind: query.SeedKind(s.Kind), QualName: s.QualName, Path: s.Path,
			StartLine: s.StartLine, EndLine: s.EndLine, Query: s.Query,
		})
	}
	res, err := d.engine.GatherContext(ctx, query.GatherContextOptions{
		Seeds: seeds, BudgetBytes: p.BudgetBytes, Strategy: query.ContextStrategy(p.Strategy),
	})
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type analyzeImpactParams struct {
	QualName  string `json:"qualname"`
	Direction string `json:"direction"`
	MaxDepth  int    `json:"max_depth"`
	MaxNodes  int    `json:"max_nodes"`
}

func handleAnalyzeImpact(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p analyzeImpactParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("qualname", p.QualName); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.AnalyzeImpact(ctx, query.AnalyzeImpactOptions{
		QualName: p.QualName, Direction: impact.ImpactDirection(p.Direction), MaxDepth: p.MaxDepth, MaxNodes: p.MaxNodes,
	})
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type analyzeDiffParams struct {
	DiffText string `json:"diff_text"`
}

func handleAnalyzeDiff(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p analyzeDiffParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("diff_text", p.DiffText); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.AnalyzeDiff(ctx, p.DiffText)
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type traceFlowParams struct {
	QualName  string `json:"qualname"`
	Direction string `json:"direction"`
	MaxDepth  int    `json:"max_depth"`
	MaxNodes  int    `json:"max_nodes"`
}

func handleTraceFlow(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p traceFlowParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("qualname", p.QualName); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.TraceFlow(ctx, query.TraceFlowOptions{
		QualName: p.QualName, Direction: flow.Direction(p.Direction), MaxDepth: p.MaxDepth, MaxNodes: p.MaxNodes,
	})
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type findTestsForParams struct {
	QualName string `json:"qualname"`
}

func handleFindTestsFor(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p findTestsForParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("qualname", p.QualName); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.FindTestsFor(ctx, p.QualName)
	return res, nil, err
}

type repoMapParams struct {
	BudgetBytes int `json:"budget_bytes"`
}

func handleRepoMap(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p repoMapParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.RepoMap(ctx, query.RepoMapOptions{BudgetBytes: p.BudgetBytes})
	if err != nil {
		return nil, nil, err
	}
	return res, res.NextHops, nil
}

type coChangesParams struct {
	Path  string `json:"path"`
	Limit int    `json:"limit"`
}

func handleCoChanges(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p coChangesParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("path", p.Path); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.CoChanges(ctx, p.Path, p.Limit)
	return res, nil, err
}

func handleIndexStatus(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	res, err := d.engine.IndexStatus(ctx)
	return res, nil, err
}

func handleChangedFiles(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	res, err := d.engine.ChangedFiles(ctx)
	return res, nil, err
}

func handleReindex(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	if d.orchestrator == nil {
		return nil, nil, &Error{Code: "unavailable", Message: "reindex is not available on this dispatcher"}
	}
	ignores, err := scanner.LoadIgnoreSet(d.repoRoot, "")
	if err != nil {
		return nil, nil, err
	}
	result, err := d.orchestrator.FullReindex(ctx, ignores)
	if err != nil {
		return nil, nil, err
	}
	return result, nil, nil
}

type limitParams struct {
	Limit int `json:"limit"`
}

func handleDeadSymbols(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p limitParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.DeadSymbols(ctx, p.Limit)
	return res, nil, err
}

func handleOrphanTests(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p limitParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.OrphanTests(ctx, p.Limit)
	return res, nil, err
}

func handleDiagnosticsStatus(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	res, err := d.engine.DiagnosticsStatus(ctx)
	return res, nil, err
}

type exportSCIPParams struct {
	Path string `json:"path"`
}

func handleExportSCIP(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error) {
	var p exportSCIPParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := requireString("path", p.Path); err != nil {
		return nil, nil, err
	}
	res, err := d.engine.ExportSCIP(ctx, p.Path)
	return res, nil, err
}
