package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cgraph/internal/store"
)

// SeedKind is the tagged-union discriminator for gather_context seeds
// (spec §4.H: "seeds may be symbol | file_range | search_query").
type SeedKind string

const (
	SeedSymbol      SeedKind = "symbol"
	SeedFileRange   SeedKind = "file_range"
	SeedSearchQuery SeedKind = "search_query"
)

// Seed is one heterogeneous gather_context input.
type Seed struct {
	Kind      SeedKind
	QualName  string
	Path      string
	StartLine int
	EndLine   int
	Query     string
}

// ContextStrategy selects how gather_context expands its seeds (spec
// §4.H: "symbol" walks the call graph in tiers, "file" includes ranges
// verbatim).
type ContextStrategy string

const (
	StrategySymbol ContextStrategy = "symbol"
	StrategyFile   ContextStrategy = "file"
)

// GatherContextOptions are the parameters of gather_context.
type GatherContextOptions struct {
	Seeds       []Seed
	BudgetBytes int
	Strategy    ContextStrategy
}

// ContextItem is one piece of assembled content.
type ContextItem struct {
	Path   string `json:"path"`
	Tier   int    `json:"tier"`
	Header string `json:"header"`
	Text   string `json:"text"`
	Bytes  int    `json:"bytes"`
}

// GatherContextResult is the response for gather_context.
type GatherContextResult struct {
	Items        []ContextItem `json:"items"`
	TotalBytes   int           `json:"total_bytes"`
	Truncated    bool          `json:"truncated"`
	DedupedCount int           `json:"deduped_count"`
	Provenance   *Provenance   `json:"provenance"`
	NextHops     []Hop         `json:"next_hops"`
}

// contentCollector accumulates ContextItems under a byte budget, deduping
// by (path, header, text) so the same item reached from several seeds is
// added once (grounded on original_source's ContentCollector/
// DeduplicationTracker; cgraph keys on item content rather than byte
// offsets since store.Symbol carries no byte spans).
type contentCollector struct {
	budget    int
	used      int
	items     []ContextItem
	seen      map[string]bool
	truncated bool
	deduped   int
}

func newContentCollector(budget int) *contentCollector {
	if budget <= 0 {
		budget = 32 * 1024
	}
	return &contentCollector{budget: budget, seen: map[string]bool{}}
}

func (c *contentCollector) remaining() int { return c.budget - c.used }
func (c *contentCollector) overBudget() bool { return c.used >= c.budget }

func (c *contentCollector) tryAdd(item ContextItem) bool {
	key := fmt.Sprintf("%s|%s|%s", item.Path, item.Header, item.Text)
	if c.seen[key] {
		c.deduped++
		return false
	}
	size := len(item.Text) + len(item.Header)
	if c.used+size > c.budget {
		c.truncated = true
		return false
	}
	c.seen[key] = true
	item.Bytes = size
	c.used += size
	c.items = append(c.items, item)
	return true
}

// GatherContext implements gather_context(seeds[], budget_bytes,
// strategy): tiered content assembly for the "symbol" strategy (tier 0
// full body, tier 1 direct neighbors with evidence, tier 2 transitive
// neighbor signatures, then a bounded cross-file expansion), or verbatim
// ranges for the "file" strategy (spec §4.H).
func (e *Engine) GatherContext(ctx context.Context, opts GatherContextOptions) (*GatherContextResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategySymbol
	}

	collector := newContentCollector(opts.BudgetBytes)

	switch opts.Strategy {
	case StrategyFile:
		e.gatherFileSeeds(collector, opts.Seeds)
	default:
		if err := e.gatherSymbolSeeds(ctx, collector, opts.Seeds); err != nil {
			return nil, err
		}
	}

	sortContextItems(collector.items)

	return &GatherContextResult{
		Items:        collector.items,
		TotalBytes:   collector.used,
		Truncated:    collector.truncated,
		DedupedCount: collector.deduped,
		Provenance:   e.buildProvenance(state, start, nil),
	}, nil
}

func (e *Engine) gatherFileSeeds(collector *contentCollector, seeds []Seed) {
	for _, s := range seeds {
		if s.Kind != SeedFileRange || collector.overBudget() {
			continue
		}
		text, err := readFileLines(e.repoRoot, s.Path, s.StartLine, s.EndLine)
		if err != nil {
			continue
		}
		collector.tryAdd(ContextItem{
			Path:   s.Path,
			Tier:   0,
			Header: fmt.Sprintf("// File: %s (lines %d-%d)", s.Path, s.StartLine, s.EndLine),
			Text:   text,
		})
	}
}

func (e *Engine) gatherSymbolSeeds(ctx context.Context, collector *contentCollector, seeds []Seed) error {
	seedSymbols, err := e.resolveSymbolSeeds(seeds)
	if err != nil {
		return err
	}

	filesRepresented := map[string]bool{}
	for _, sym := range seedSymbols {
		if collector.overBudget() {
			break
		}
		path, err := e.db.FilePathOf(sym.FileID)
		if err != nil {
			continue
		}
		filesRepresented[path] = true

		body, err := readSymbolSnippet(e.repoRoot, e.db, sym)
		if err == nil {
			collector.tryAdd(ContextItem{
				Path:   path,
				Tier:   0,
				Header: fmt.Sprintf("// File: %s (%s)", path, sym.Kind),
				Text:   body,
			})
		}

		e.addNeighborTiers(collector, sym, filesRepresented)
	}

	if !collector.overBudget() {
		e.expandCrossFile(collector, seedSymbols, filesRepresented)
	}
	return nil
}

func (e *Engine) resolveSymbolSeeds(seeds []Seed) ([]store.Symbol, error) {
	var out []store.Symbol
	for _, s := range seeds {
		switch s.Kind {
		case SeedSymbol:
			sym, err := e.db.GetSymbolByQualName(s.QualName)
			if err == nil && sym != nil {
				out = append(out, *sym)
			}
		case SeedSearchQuery:
			matches, err := e.db.SearchSymbols(s.Query, "", "", 5)
			if err == nil {
				out = append(out, matches...)
			}
		}
	}
	return out, nil
}

// addNeighborTiers adds tier 1 (direct neighbors, signature + evidence)
// and tier 2 (their neighbors, signature only) for one seed symbol.
func (e *Engine) addNeighborTiers(collector *contentCollector, seed store.Symbol, filesRepresented map[string]bool) {
	tier1, err := e.db.GetEdgesForSymbol(seed.ID, store.Both, nil, 20)
	if err != nil {
		return
	}
	sortEdgesDeterministic(tier1)

	var tier2Seeds []int64
	for _, edge := range tier1 {
		if collector.overBudget() {
			return
		}
		otherID, ok := otherEndpoint(edge, seed.ID)
		if !ok {
			continue
		}
		other, err := e.db.GetSymbolByID(otherID)
		if err != nil || other == nil {
			continue
		}
		path, err := e.db.FilePathOf(other.FileID)
		if err != nil {
			continue
		}
		filesRepresented[path] = true

		header := fmt.Sprintf("// File: %s (%s)", path, other.Kind)
		text := other.Signature
		if edge.Evidence != "" {
			text += fmt.Sprintf("\n// %s at line %d\n%s", edge.Kind, edge.EvidenceStartLine, strings.TrimSpace(edge.Evidence))
		}
		collector.tryAdd(ContextItem{Path: path, Tier: 1, Header: header, Text: text})
		tier2Seeds = append(tier2Seeds, other.ID)
	}

	for _, id := range tier2Seeds {
		if collector.overBudget() {
			return
		}
		edges, err := e.db.GetEdgesForSymbol(id, store.Both, nil, 10)
		if err != nil {
			continue
		}
		sortEdgesDeterministic(edges)
		for _, edge := range edges {
			if collector.overBudget() {
				return
			}
			otherID, ok := otherEndpoint(edge, id)
			if !ok {
				continue
			}
			other, err := e.db.GetSymbolByID(otherID)
			if err != nil || other == nil {
				continue
			}
			path, err := e.db.FilePathOf(other.FileID)
			if err != nil {
				continue
			}
			collector.tryAdd(ContextItem{
				Path:   path,
				Tier:   2,
				Header: fmt.Sprintf("// File: %s (%s)", path, other.Kind),
				Text:   other.Signature,
			})
		}
	}
}

// expandCrossFile follows CALLS edges from every seed into files not yet
// represented, budgeted at 30% of whatever remains (grounded on
// original_source's collect_content_symbol_strategy cross-file cap).
func (e *Engine) expandCrossFile(collector *contentCollector, seeds []store.Symbol, filesRepresented map[string]bool) {
	crossBudget := collector.remaining() * 30 / 100
	if crossBudget < 1000 {
		crossBudget = 1000
	}
	crossUsed := 0

	for _, seed := range seeds {
		edges, err := e.db.GetEdgesForSymbol(seed.ID, store.Outgoing, []store.EdgeKind{store.EdgeCalls}, 50)
		if err != nil {
			continue
		}
		sortEdgesDeterministic(edges)
		for _, edge := range edges {
			if collector.overBudget() || crossUsed >= crossBudget {
				return
			}
			if edge.TargetSymbolID == nil {
				continue
			}
			target, err := e.db.GetSymbolByID(*edge.TargetSymbolID)
			if err != nil || target == nil {
				continue
			}
			path, err := e.db.FilePathOf(target.FileID)
			if err != nil || filesRepresented[path] {
				continue
			}
			filesRepresented[path] = true
			item := ContextItem{
				Path:   path,
				Tier:   1,
				Header: fmt.Sprintf("// File: %s (%s)", path, target.Kind),
				Text:   target.Signature,
			}
			before := collector.used
			if collector.tryAdd(item) {
				crossUsed += collector.used - before
			}
		}
	}
}

// sortContextItems orders items deterministically by tier then path
// (spec §4.H "output stable under same inputs").
func sortContextItems(items []ContextItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Tier != items[j].Tier {
			return items[i].Tier < items[j].Tier
		}
		return items[i].Path < items[j].Path
	})
}
