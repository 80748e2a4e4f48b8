package impact

import (
	"context"

	"cgraph/internal/store"
)

// SemanticLayer is the pluggable embedding-similarity layer (spec §4.H:
// "if a ranker is configured"). No ranker ships in this module, so the
// layer reports itself disabled rather than erroring — the engine skips
// layers whose DefaultEnabled() is false unless a caller explicitly
// opts in, and opting in here would still have nothing to rank with.
type SemanticLayer struct {
	// Ranker, when non-nil, scores candidate qualnames against the seed.
	// Left unset: no embedding/ranker dependency is wired anywhere in
	// this module, so this field exists only as the seam a future
	// ranker would plug into.
	Ranker func(ctx context.Context, seed *store.Symbol, candidates []string) (map[string]float64, error)
}

func (SemanticLayer) Name() string           { return "semantic" }
func (l SemanticLayer) DefaultEnabled() bool { return l.Ranker != nil }

func (l SemanticLayer) Run(ctx context.Context, db *store.DB, seed *store.Symbol, cfg Config) (LayerResult, error) {
	if l.Ranker == nil {
		return LayerResult{Layer: "semantic"}, nil
	}
	// No candidate set is assembled without a ranker to score it against;
	// a real ranker implementation would supply its own candidate source.
	return LayerResult{Layer: "semantic"}, nil
}
