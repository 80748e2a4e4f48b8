// Package impact implements multi-layer change-impact analysis (spec
// §4.H analyze_impact): independent capabilities that each traverse the
// graph their own way and are fused after the fact by noisy-OR confidence
// combination. Grounded on the teacher's internal/impact package for the
// "independent capability with Name()/DefaultEnabled()/Run()" shape (spec
// §9 Design Notes "Impact layers"), though the teacher's own single-pass
// blast-radius analyzer doesn't split into layers the way this spec does.
package impact

import (
	"context"

	"cgraph/internal/store"
)

// ImpactDirection names which side of the call graph a layer walks (spec
// §4.H analyze_impact: "upstream" = callers, "downstream" = callees).
type ImpactDirection string

const (
	Upstream   ImpactDirection = "upstream"
	Downstream ImpactDirection = "downstream"
)

// storeDirection translates the public upstream/downstream vocabulary into
// store.Direction's outgoing/incoming (upstream callers are found by
// following edges *into* the seed).
func (d ImpactDirection) storeDirection() store.Direction {
	if d == Upstream {
		return store.Incoming
	}
	return store.Outgoing
}

// Item is one symbol reached by a layer, with that layer's own evidence.
type Item struct {
	SymbolID   int64
	QualName   string
	FilePath   string
	Distance   int
	Confidence float64
	Evidence   string
}

// LayerResult is one layer's independent findings.
type LayerResult struct {
	Layer string
	Items []Item
}

// Layer is an independent impact-analysis capability (spec §9: "Each layer
// is an independent capability with the operations {run, name,
// default_enabled}. Confidence fusion is pure data combination after the
// fact; no layer depends on another's output.").
type Layer interface {
	Name() string
	DefaultEnabled() bool
	Run(ctx context.Context, db *store.DB, seed *store.Symbol, cfg Config) (LayerResult, error)
}

// Config bounds BFS-based layers (spec §6 Impact).
type Config struct {
	Direction   ImpactDirection
	MaxDepth    int
	PerHopDecay float64
	MaxNodes    int
}

func (c Config) withDefaults() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = 3
	}
	if c.PerHopDecay <= 0 {
		c.PerHopDecay = 0.7
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = 500
	}
	if c.Direction == "" {
		c.Direction = Downstream
	}
	return c
}
