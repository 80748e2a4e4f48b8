package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"cgraph/internal/store"
)

// FindSymbolOptions are the parameters of find_symbol.
type FindSymbolOptions struct {
	Query    string
	Kind     string
	Language string
	Limit    int
}

// SymbolMatch is one find_symbol result, tagged with the match tier it
// was ranked under (spec §4.H: "exact name > prefix > substring > fuzzy").
type SymbolMatch struct {
	Symbol    store.Symbol `json:"symbol"`
	MatchTier string       `json:"match_tier"`
}

// FindSymbolResult is the response for find_symbol.
type FindSymbolResult struct {
	Matches    []SymbolMatch `json:"matches"`
	Provenance *Provenance   `json:"provenance"`
	NextHops   []Hop         `json:"next_hops"`
}

func matchTier(name, query string) (string, bool) {
	lowerName, lowerQuery := strings.ToLower(name), strings.ToLower(query)
	switch {
	case lowerName == lowerQuery:
		return "exact", true
	case strings.HasPrefix(lowerName, lowerQuery):
		return "prefix", true
	case strings.Contains(lowerName, lowerQuery):
		return "substring", true
	default:
		return "fuzzy", false
	}
}

var tierRank = map[string]int{"exact": 0, "prefix": 1, "substring": 2, "fuzzy": 3}

// FindSymbol implements find_symbol: exact > prefix > substring > fuzzy
// (edit distance), ties broken by fan-in descending then qualname
// ascending (spec §4.H).
func (e *Engine) FindSymbol(ctx context.Context, opts FindSymbolOptions) (*FindSymbolResult, error) {
	start := time.Now()
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := e.db.SearchSymbols(opts.Query, opts.Kind, opts.Language, opts.Limit)
	if err != nil {
		return nil, err
	}

	matches := make([]SymbolMatch, 0, len(candidates))
	for _, sym := range candidates {
		tier, _ := matchTier(sym.Name, opts.Query)
		matches = append(matches, SymbolMatch{Symbol: sym, MatchTier: tier})
	}

	if len(matches) < opts.Limit {
		fuzzy, err := fuzzyMatchSymbols(e.db, opts.Query, opts.Kind, opts.Language, opts.Limit)
		if err == nil {
			seen := map[int64]bool{}
			for _, m := range matches {
				seen[m.Symbol.ID] = true
			}
			for _, f := range fuzzy {
				if !seen[f.Symbol.ID] {
					matches = append(matches, f)
					seen[f.Symbol.ID] = true
				}
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if tierRank[matches[i].MatchTier] != tierRank[matches[j].MatchTier] {
			return tierRank[matches[i].MatchTier] < tierRank[matches[j].MatchTier]
		}
		if matches[i].Symbol.FanIn != matches[j].Symbol.FanIn {
			return matches[i].Symbol.FanIn > matches[j].Symbol.FanIn
		}
		return matches[i].Symbol.QualName < matches[j].Symbol.QualName
	})
	if len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	var hops []Hop
	if len(matches) > 0 {
		hops = append(hops, Hop{
			Method: "open_symbol",
			Params: map[string]interface{}{"qualname": matches[0].Symbol.QualName},
			Reason: "inspect the top match",
		})
	}

	return &FindSymbolResult{
		Matches:    matches,
		Provenance: e.buildProvenance(state, start, nil),
		NextHops:   hops,
	}, nil
}

// fuzzyMatchSymbols falls back to edit-distance ranking over the names of
// the live symbols one unfiltered SearchSymbols call returns (at most 200
// rows, not every live symbol) when the substring pre-filter came up
// short (spec §4.H "fuzzy (edit distance)"; §9 leaves the exact metric
// implementation-defined — Levenshtein is used here, see DESIGN.md).
func fuzzyMatchSymbols(db *store.DB, query, kind, language string, limit int) ([]SymbolMatch, error) {
	all, err := db.SearchSymbols("", kind, language, 0)
	if err != nil || len(all) == 0 {
		all, err = db.SearchSymbols("%", kind, language, 5000)
	}
	if err != nil {
		return nil, err
	}
	type scored struct {
		sym  store.Symbol
		dist int
	}
	var scoredSyms []scored
	for _, sym := range all {
		scoredSyms = append(scoredSyms, scored{sym: sym, dist: levenshtein(strings.ToLower(sym.Name), strings.ToLower(query))})
	}
	sort.Slice(scoredSyms, func(i, j int) bool {
		if scoredSyms[i].dist != scoredSyms[j].dist {
			return scoredSyms[i].dist < scoredSyms[j].dist
		}
		return scoredSyms[i].sym.QualName < scoredSyms[j].sym.QualName
	})
	if len(scoredSyms) > limit {
		scoredSyms = scoredSyms[:limit]
	}
	out := make([]SymbolMatch, 0, len(scoredSyms))
	for _, s := range scoredSyms {
		out = append(out, SymbolMatch{Symbol: s.sym, MatchTier: "fuzzy"})
	}
	return out, nil
}

// levenshtein computes classic edit distance with a single-row DP table.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur := make([]int, len(rb)+1)
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = cur
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// SuggestQualNames implements suggest_qualnames: ranked fuzzy matches over
// qualnames rather than names (spec §4.H, §9 Open Question — decided in
// favor of the same Levenshtein metric find_symbol uses, for consistency).
func (e *Engine) SuggestQualNames(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	all, err := e.db.SearchSymbols("%", "", "", 5000)
	if err != nil {
		return nil, err
	}
	type scored struct {
		qualname string
		dist     int
	}
	var scoredNames []scored
	seen := map[string]bool{}
	for _, sym := range all {
		if seen[sym.QualName] {
			continue
		}
		seen[sym.QualName] = true
		scoredNames = append(scoredNames, scored{qualname: sym.QualName, dist: levenshtein(strings.ToLower(sym.QualName), strings.ToLower(query))})
	}
	sort.Slice(scoredNames, func(i, j int) bool {
		if scoredNames[i].dist != scoredNames[j].dist {
			return scoredNames[i].dist < scoredNames[j].dist
		}
		return scoredNames[i].qualname < scoredNames[j].qualname
	})
	if len(scoredNames) > limit {
		scoredNames = scoredNames[:limit]
	}
	out := make([]string, 0, len(scoredNames))
	for _, s := range scoredNames {
		out = append(out, s.qualname)
	}
	return out, nil
}

// OpenSymbolOptions are the parameters of open_symbol.
type OpenSymbolOptions struct {
	QualName string
	Snippet  bool
}

// OpenSymbolResult is the response for open_symbol.
type OpenSymbolResult struct {
	Symbol     *store.Symbol `json:"symbol"`
	Snippet    string        `json:"snippet,omitempty"`
	Provenance *Provenance   `json:"provenance"`
	NextHops   []Hop         `json:"next_hops"`
}

// OpenSymbol implements open_symbol(id|qualname, snippet?).
func (e *Engine) OpenSymbol(ctx context.Context, opts OpenSymbolOptions) (*OpenSymbolResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}

	sym, err := e.db.GetSymbolByQualName(opts.QualName)
	if err != nil {
		return nil, err
	}
	result := &OpenSymbolResult{Symbol: sym, Provenance: e.buildProvenance(state, start, nil)}
	if sym == nil {
		return result, nil
	}

	if opts.Snippet {
		snippet, err := readSymbolSnippet(e.repoRoot, e.db, *sym)
		if err == nil {
			result.Snippet = snippet
		}
	}

	result.NextHops = []Hop{
		{Method: "neighbors", Params: map[string]interface{}{"qualname": sym.QualName, "direction": "both"}, Reason: "see adjacent edges"},
		{Method: "analyze_impact", Params: map[string]interface{}{"qualname": sym.QualName, "direction": "downstream"}, Reason: "assess blast radius"},
	}
	return result, nil
}
