package impact

import (
	"context"
	"strings"

	"cgraph/internal/store"
)

// TestLayer finds tests reachable from the seed: a test that calls the
// seed directly, or a test that calls one of the seed's callers (spec
// §4.H: "attach tests that call it (direct) or call a caller (indirect)").
// A symbol counts as a test when its owning file path carries a
// conventional test marker — the same heuristic every pack repo's own test
// tooling relies on (filenames, not an annotation the extractors emit).
type TestLayer struct{}

func (TestLayer) Name() string         { return "test" }
func (TestLayer) DefaultEnabled() bool { return true }

func (TestLayer) Run(ctx context.Context, db *store.DB, seed *store.Symbol, cfg Config) (LayerResult, error) {
	cfg = cfg.withDefaults()

	callers, err := db.GetEdgesForSymbol(seed.ID, store.Incoming, []store.EdgeKind{store.EdgeCalls, store.EdgeTests}, cfg.MaxNodes)
	if err != nil {
		return LayerResult{Layer: "test"}, err
	}

	var items []Item
	seen := map[int64]bool{}

	addIfTest := func(symbolID int64, distance int, confidence float64, evidence string) {
		if seen[symbolID] {
			return
		}
		sym, err := db.GetSymbolByID(symbolID)
		if err != nil || sym == nil {
			return
		}
		path, _ := db.FilePathOf(sym.FileID)
		if !looksLikeTestPath(path) {
			return
		}
		seen[symbolID] = true
		items = append(items, Item{
			SymbolID: sym.ID, QualName: sym.QualName, FilePath: path,
			Distance: distance, Confidence: confidence, Evidence: evidence,
		})
	}

	for _, e := range callers {
		if err := ctx.Err(); err != nil {
			return LayerResult{Layer: "test", Items: items}, err
		}
		caller := otherEnd(e, seed.ID)
		if caller == nil {
			continue
		}
		addIfTest(*caller, 1, 0.9, "direct test of "+seed.QualName)

		indirect, err := db.GetEdgesForSymbol(*caller, store.Incoming, []store.EdgeKind{store.EdgeCalls}, cfg.MaxNodes)
		if err != nil {
			continue
		}
		for _, ie := range indirect {
			grandcaller := otherEnd(ie, *caller)
			if grandcaller == nil {
				continue
			}
			addIfTest(*grandcaller, 2, 0.6, "indirect test via caller of "+seed.QualName)
		}
	}

	return LayerResult{Layer: "test", Items: items}, nil
}

func looksLikeTestPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "_test.") ||
		strings.Contains(lower, "test_") ||
		strings.Contains(lower, "/tests/") ||
		strings.Contains(lower, "/test/") ||
		strings.HasSuffix(lower, ".test.ts") ||
		strings.HasSuffix(lower, ".test.js") ||
		strings.HasSuffix(lower, ".spec.ts") ||
		strings.HasSuffix(lower, ".spec.js")
}
