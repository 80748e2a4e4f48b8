package impact

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cgraph/internal/store"
)

// DefaultLayers is the set of layers AnalyzeImpact runs when the caller
// doesn't supply its own (spec §4.H: Direct, Test, Historical are always
// on; Semantic only activates once a ranker is configured).
func DefaultLayers() []Layer {
	return []Layer{DirectLayer{}, TestLayer{}, HistoricalLayer{}, SemanticLayer{}}
}

// LayerError pairs a layer's name with the error it returned, so a
// caller analyzer can report partial results (spec §4.H: "any layer may
// fail; the orchestrator returns the others with a per-layer error
// indicator").
type LayerError struct {
	Layer string
	Err   error
}

func (e LayerError) Error() string {
	return fmt.Sprintf("%s layer: %v", e.Layer, e.Err)
}

// Result is the outcome of AnalyzeImpact: the fused, ranked findings
// plus any layers that failed along the way.
type Result struct {
	Seed   *store.Symbol
	Items  []Fused
	Errors []LayerError
}

// AnalyzeImpact resolves seedQualName, runs every enabled layer
// concurrently, and fuses their results with noisy-OR. Layers are
// independent by construction (Layer.Run takes only the seed and a
// snapshot Config) so there is nothing to coordinate beyond collecting
// results.
func AnalyzeImpact(ctx context.Context, db *store.DB, layers []Layer, seedQualName string, cfg Config) (*Result, error) {
	if layers == nil {
		layers = DefaultLayers()
	}
	cfg = cfg.withDefaults()

	seed, err := db.GetSymbolByQualName(seedQualName)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		return nil, fmt.Errorf("impact: unknown symbol %q", seedQualName)
	}

	type outcome struct {
		result LayerResult
		err    error
		name   string
	}
	outcomes := make([]outcome, len(layers))

	var wg sync.WaitGroup
	for i, l := range layers {
		if !l.DefaultEnabled() {
			outcomes[i] = outcome{name: l.Name()}
			continue
		}
		wg.Add(1)
		go func(i int, l Layer) {
			defer wg.Done()
			res, err := l.Run(ctx, db, seed, cfg)
			outcomes[i] = outcome{result: res, err: err, name: l.Name()}
		}(i, l)
	}
	wg.Wait()

	var results []LayerResult
	var errs []LayerError
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, LayerError{Layer: o.name, Err: o.err})
			continue
		}
		if o.result.Layer != "" || len(o.result.Items) > 0 {
			results = append(results, o.result)
		}
	}

	fused := Fuse(results)
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Confidence != fused[j].Confidence {
			return fused[i].Confidence > fused[j].Confidence
		}
		if fused[i].Distance != fused[j].Distance {
			return fused[i].Distance < fused[j].Distance
		}
		return fused[i].QualName < fused[j].QualName
	})

	return &Result{Seed: seed, Items: fused, Errors: errs}, nil
}
