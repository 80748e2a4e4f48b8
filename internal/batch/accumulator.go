package batch

import (
	"time"

	"cgraph/internal/config"
)

// Accumulator buffers FileResults and decides when to flush, implementing
// spec §4.F batching: BATCH_SIZE, FLUSH_INTERVAL_MS, and BATCH_MEM_LIMIT_MB
// are all independent triggers — whichever fires first wins.
type Accumulator struct {
	cfg       config.IndexingConfig
	buf       []FileResult
	memBytes  int64
	opened    time.Time
	clock     func() time.Time
}

// NewAccumulator builds an Accumulator under cfg. clock defaults to
// time.Now; tests inject a fake clock to exercise the interval trigger
// deterministically.
func NewAccumulator(cfg config.IndexingConfig, clock func() time.Time) *Accumulator {
	if clock == nil {
		clock = time.Now
	}
	return &Accumulator{cfg: cfg, clock: clock, opened: clock()}
}

// Add appends a result to the buffer, tracking its approximate memory
// footprint (symbol + edge count is a reasonable proxy for a graph-shaped
// payload; exact byte accounting would require serializing, which the
// batch writer never does until the commit itself).
func (a *Accumulator) Add(r FileResult) {
	if len(a.buf) == 0 {
		a.opened = a.clock()
	}
	a.buf = append(a.buf, r)
	a.memBytes += estimateSize(r)
}

// ShouldFlush reports whether any of the three independent thresholds has
// been crossed (spec §4.F backpressure).
func (a *Accumulator) ShouldFlush() bool {
	if len(a.buf) == 0 {
		return false
	}
	if a.cfg.BatchSize > 0 && len(a.buf) >= a.cfg.BatchSize {
		return true
	}
	limitBytes := int64(a.cfg.BatchMemLimitMB) * 1024 * 1024
	if limitBytes > 0 && a.memBytes >= limitBytes {
		return true
	}
	if a.cfg.FlushIntervalMs > 0 {
		elapsed := a.clock().Sub(a.opened)
		if elapsed >= time.Duration(a.cfg.FlushIntervalMs)*time.Millisecond {
			return true
		}
	}
	return false
}

// Drain returns and clears the buffered results.
func (a *Accumulator) Drain() []FileResult {
	out := a.buf
	a.buf = nil
	a.memBytes = 0
	return out
}

// Len reports the number of buffered results.
func (a *Accumulator) Len() int { return len(a.buf) }

func estimateSize(r FileResult) int64 {
	size := int64(len(r.Path)) + 64
	for _, s := range r.Extracted.Symbols {
		size += int64(len(s.QualName)+len(s.Signature)+len(s.Docstring)) + 96
	}
	for _, e := range r.Extracted.Edges {
		size += int64(len(e.TargetQualName)+len(e.Evidence)) + 64
	}
	return size
}
