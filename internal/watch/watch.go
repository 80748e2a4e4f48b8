// Package watch provides a recursive filesystem watcher with an adaptive
// debouncer, grounded on the teacher's internal/watcher/watcher.go and
// internal/watcher/debouncer.go, generalized from git-metadata polling to
// real fsnotify-driven recursive source watching (spec §4.G).
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cgraph/internal/config"
	"cgraph/internal/logging"
	"cgraph/internal/scanner"
)

// Handler is invoked once a batch of filesystem events has settled.
// When fullReindex is true, changed and deleted are both nil and the
// caller should run a full reindex rather than an incremental one
// (spec §4.G "batch-threshold fallback to full incremental pass at
// more than 1000 debounced events").
type Handler func(ctx context.Context, changed, deleted []string, fullReindex bool)

type pathState struct {
	firstEdit time.Time
	timer     *time.Timer
}

// Watcher watches a repo root for source changes and dispatches debounced,
// coalesced batches of changed/deleted paths to a Handler.
type Watcher struct {
	root    string
	ignores *scanner.IgnoreSet
	cfg     config.WatchConfig
	logger  *logging.Logger
	handler Handler

	fsw *fsnotify.Watcher

	mu         sync.Mutex
	pathStates map[string]*pathState
	ready      map[string]struct{}
	drainTimer *time.Timer

	now func() time.Time

	done   chan struct{}
	wg     sync.WaitGroup
	poller *Poller
}

// New constructs a Watcher. If fsnotify is unavailable on this platform or
// the root cannot be registered, Start falls back to polling (spec §4.G
// "polling fallback when watches unavailable").
func New(root string, ignores *scanner.IgnoreSet, cfg config.WatchConfig, logger *logging.Logger, handler Handler) *Watcher {
	return &Watcher{
		root: root, ignores: ignores, cfg: cfg, logger: logger, handler: handler,
		pathStates: make(map[string]*pathState),
		ready:      make(map[string]struct{}),
		now:        time.Now,
		done:       make(chan struct{}),
	}
}

// Start begins watching. It blocks only long enough to register the
// filesystem watches; event handling runs in background goroutines.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, falling back to polling", map[string]interface{}{"error": err.Error()})
		return w.startPolling(ctx)
	}
	w.fsw = fsw

	if err := w.registerTree(w.root); err != nil {
		w.logger.Warn("fsnotify registration failed, falling back to polling", map[string]interface{}{"error": err.Error()})
		fsw.Close()
		w.fsw = nil
		return w.startPolling(ctx)
	}

	w.wg.Add(1)
	go w.loop(ctx)
	w.logger.Info("watching repo", map[string]interface{}{"root": w.root})
	return nil
}

// Stop tears down the watcher, whichever backend is active.
func (w *Watcher) Stop() error {
	close(w.done)
	if w.poller != nil {
		w.poller.Stop()
	}
	if w.fsw != nil {
		w.fsw.Close()
	}
	w.wg.Wait()
	return nil
}

func (w *Watcher) startPolling(ctx context.Context) error {
	pollInterval := time.Duration(w.cfg.FallbackPollSecs) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	w.poller = NewPoller(w.root, w.ignores, pollInterval, w.logger, func(changed, deleted []string) {
		w.dispatch(ctx, changed, deleted)
	})
	return w.poller.Start()
}

// registerTree walks the tree adding fsnotify watches on every
// non-ignored directory. fsnotify does not watch recursively on its own.
func (w *Watcher) registerTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if rel != "." && w.ignores != nil && w.ignores.Match(rel) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", map[string]interface{}{"error": err.Error()})
		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleFSEvent(ctx context.Context, ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if w.ignores != nil && w.ignores.Match(rel) {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			w.registerTree(ev.Name)
		}
	}

	w.scheduleFlush(ctx, rel)
}

// scheduleFlush implements the adaptive debouncer: every edit of a path,
// the first included, gets the fast UrgentDebounceMs delay while less than
// UrgentWindowSecs has passed since the path's first still-pending edit,
// and NormalDebounceMs after that (spec §4.G). A path's state is dropped
// when it settles, so edits that have already settled are not counted.
func (w *Watcher) scheduleFlush(ctx context.Context, relPath string) {
	w.mu.Lock()
	now := w.now()
	ps, ok := w.pathStates[relPath]
	if !ok {
		ps = &pathState{firstEdit: now}
		w.pathStates[relPath] = ps
	}

	delayMs := w.cfg.NormalDebounceMs
	if now.Sub(ps.firstEdit) < time.Duration(w.cfg.UrgentWindowSecs)*time.Second {
		delayMs = w.cfg.UrgentDebounceMs
	}
	if delayMs <= 0 {
		delayMs = 300
	}

	if ps.timer != nil {
		ps.timer.Stop()
	}
	ps.timer = time.AfterFunc(time.Duration(delayMs)*time.Millisecond, func() {
		w.settle(ctx, relPath)
	})
	w.mu.Unlock()
}

// settle moves one debounced path into the ready batch and extends a
// short drain timer so rapid, near-simultaneous settlements from
// different paths coalesce into a single Handler call.
func (w *Watcher) settle(ctx context.Context, relPath string) {
	w.mu.Lock()
	delete(w.pathStates, relPath)
	w.ready[relPath] = struct{}{}

	drainDelay := time.Duration(w.cfg.UrgentDebounceMs) * time.Millisecond
	if drainDelay <= 0 {
		drainDelay = 50 * time.Millisecond
	}
	if w.drainTimer != nil {
		w.drainTimer.Stop()
	}
	w.drainTimer = time.AfterFunc(drainDelay, func() {
		w.drain(ctx)
	})
	w.mu.Unlock()
}

func (w *Watcher) drain(ctx context.Context) {
	w.mu.Lock()
	paths := make([]string, 0, len(w.ready))
	for p := range w.ready {
		paths = append(paths, p)
	}
	w.ready = make(map[string]struct{})
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}

	threshold := w.cfg.BatchThreshold
	if threshold > 0 && len(paths) > threshold {
		w.logger.Info("watch batch exceeded threshold, requesting full reindex", map[string]interface{}{
			"events": len(paths), "threshold": threshold,
		})
		w.handler(ctx, nil, nil, true)
		return
	}

	w.dispatch(ctx, paths, nil)
}

// dispatch classifies each coalesced path as changed or deleted via a
// delete-then-extract-if-still-present check (spec §4.G), so that atomic
// editor saves (delete+recreate, or rename-into-place) resolve correctly.
func (w *Watcher) dispatch(ctx context.Context, candidates, alreadyDeleted []string) {
	var changed, deleted []string
	deleted = append(deleted, alreadyDeleted...)
	for _, rel := range candidates {
		full := filepath.Join(w.root, rel)
		if _, err := os.Stat(full); err != nil {
			deleted = append(deleted, rel)
			continue
		}
		changed = append(changed, rel)
	}
	if len(changed) == 0 && len(deleted) == 0 {
		return
	}
	w.handler(ctx, changed, deleted, false)
}
