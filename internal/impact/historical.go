package impact

import (
	"context"

	"cgraph/internal/store"
)

// HistoricalLayer boosts symbols whose file historically co-changes with
// the seed's file, looked up from the git-mined co_change table (spec
// §4.H: "look up co-change partners of the seed's file ... boost symbols
// whose file is a partner").
type HistoricalLayer struct{}

func (HistoricalLayer) Name() string         { return "historical" }
func (HistoricalLayer) DefaultEnabled() bool { return true }

func (HistoricalLayer) Run(ctx context.Context, db *store.DB, seed *store.Symbol, cfg Config) (LayerResult, error) {
	seedPath, err := db.FilePathOf(seed.FileID)
	if err != nil {
		return LayerResult{Layer: "historical"}, err
	}

	partners, err := db.GetCoChangePartners(seedPath, 20)
	if err != nil {
		return LayerResult{Layer: "historical"}, err
	}

	var items []Item
	for _, p := range partners {
		if err := ctx.Err(); err != nil {
			return LayerResult{Layer: "historical", Items: items}, err
		}
		partnerPath := p.FileA
		if partnerPath == seedPath {
			partnerPath = p.FileB
		}
		if partnerPath == seedPath || partnerPath == "" {
			continue
		}
		f, err := db.GetFileByPath(partnerPath)
		if err != nil || f == nil {
			continue
		}
		symbols, err := db.GetLiveSymbolsForFile(f.ID)
		if err != nil {
			continue
		}
		for _, sym := range symbols {
			items = append(items, Item{
				SymbolID: sym.ID, QualName: sym.QualName, FilePath: partnerPath,
				Distance: 1, Confidence: p.Confidence,
				Evidence: "co-changes with " + seedPath,
			})
		}
	}
	return LayerResult{Layer: "historical", Items: items}, nil
}
