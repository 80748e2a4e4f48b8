package main

import (
	"context"

	"cgraph/internal/scanner"
	"cgraph/internal/watch"
)

func newWatcher(a *app, ignores *scanner.IgnoreSet, handler watch.Handler) *watch.Watcher {
	return watch.New(a.repoRoot, ignores, a.cfg.Watch, a.logger, handler)
}

// newIncrementalHandler builds the watch.Handler that turns a debounced
// batch of changed/deleted paths into an orchestrator round: a targeted
// scan of just the changed paths for a normal batch, or a full reindex when
// the batch-threshold fallback fires (spec §4.G).
func newIncrementalHandler(a *app, ignores *scanner.IgnoreSet) watch.Handler {
	return func(ctx context.Context, changed, deleted []string, fullReindex bool) {
		if fullReindex {
			a.logger.Info("watch batch threshold exceeded, running full reindex", nil)
			if _, err := a.orchestrator.FullReindex(ctx, ignores); err != nil {
				a.logger.Error("full reindex failed", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		var entries []scanner.FileEntry
		if len(changed) > 0 {
			sc := scanner.New(a.repoRoot, ignores, scanner.Config{
				LargeFileSkipMB: a.cfg.Indexing.LargeFileSkipMB,
				Subpaths:        changed,
			}, a.logger)
			scanned, err := sc.Scan()
			if err != nil {
				a.logger.Error("incremental scan failed", map[string]interface{}{"error": err.Error()})
				return
			}
			entries = scanned
		}

		if len(entries) == 0 && len(deleted) == 0 {
			return
		}

		if _, err := a.orchestrator.IncrementalReindex(ctx, entries, deleted); err != nil {
			a.logger.Error("incremental reindex failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
