package batch

import (
	"testing"
	"time"

	"cgraph/internal/config"
)

func TestAccumulatorFlushesOnBatchSize(t *testing.T) {
	cfg := config.IndexingConfig{BatchSize: 2, FlushIntervalMs: 100000, BatchMemLimitMB: 1000}
	a := NewAccumulator(cfg, nil)
	a.Add(FileResult{Path: "a.go"})
	if a.ShouldFlush() {
		t.Fatalf("should not flush after 1 of 2")
	}
	a.Add(FileResult{Path: "b.go"})
	if !a.ShouldFlush() {
		t.Fatalf("expected flush at BatchSize threshold")
	}
	drained := a.Drain()
	if len(drained) != 2 || a.Len() != 0 {
		t.Fatalf("expected drain to empty the buffer, got %d remaining", a.Len())
	}
}

func TestAccumulatorFlushesOnInterval(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cfg := config.IndexingConfig{BatchSize: 1000, FlushIntervalMs: 300, BatchMemLimitMB: 1000}
	a := NewAccumulator(cfg, clock)
	a.Add(FileResult{Path: "a.go"})
	if a.ShouldFlush() {
		t.Fatalf("should not flush before interval elapses")
	}
	now = now.Add(400 * time.Millisecond)
	if !a.ShouldFlush() {
		t.Fatalf("expected flush once interval elapsed")
	}
}
