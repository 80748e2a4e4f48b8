package impact

// Fused is one symbol's combined impact finding after merging every
// layer's independent evidence for it.
type Fused struct {
	SymbolID   int64
	QualName   string
	FilePath   string
	Distance   int
	Confidence float64
	Layers     []string
	Evidence   []string
}

// Fuse combines per-layer results for the same symbol via noisy-OR:
// confidence = 1 - product(1 - c_i) over every layer that found the
// symbol (spec §9 Testable Property 5). Distance is the minimum distance
// any contributing layer reported.
func Fuse(results []LayerResult) []Fused {
	byID := make(map[int64]*Fused)
	order := make([]int64, 0)

	for _, r := range results {
		for _, it := range r.Items {
			f, ok := byID[it.SymbolID]
			if !ok {
				f = &Fused{
					SymbolID:   it.SymbolID,
					QualName:   it.QualName,
					FilePath:   it.FilePath,
					Distance:   it.Distance,
					Confidence: 0,
				}
				byID[it.SymbolID] = f
				order = append(order, it.SymbolID)
			}
			if it.Distance < f.Distance {
				f.Distance = it.Distance
			}
			f.Confidence = 1 - (1-f.Confidence)*(1-it.Confidence)
			f.Layers = append(f.Layers, r.Layer)
			f.Evidence = append(f.Evidence, it.Evidence)
		}
	}

	out := make([]Fused, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
