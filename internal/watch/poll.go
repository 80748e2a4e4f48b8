package watch

import (
	"time"

	"cgraph/internal/logging"
	"cgraph/internal/scanner"
)

// Poller is the polling fallback used when fsnotify watches are
// unavailable (e.g. inotify instance limits exhausted, or a filesystem
// that doesn't support kernel-level watches), grounded on the teacher's
// watcher.go "Using polling instead of fsnotify for simplicity and
// cross-platform compatibility" ticker loop.
type Poller struct {
	root     string
	ignores  *scanner.IgnoreSet
	interval time.Duration
	logger   *logging.Logger
	emit     func(changed, deleted []string)

	snapshot map[string]string // relPath -> digest
	stop     chan struct{}
}

// NewPoller constructs a Poller. emit receives changed/deleted relative
// paths every poll that finds a difference from the prior snapshot.
func NewPoller(root string, ignores *scanner.IgnoreSet, interval time.Duration, logger *logging.Logger, emit func(changed, deleted []string)) *Poller {
	return &Poller{
		root: root, ignores: ignores, interval: interval, logger: logger, emit: emit,
		snapshot: make(map[string]string),
		stop:     make(chan struct{}),
	}
}

// Start takes an initial snapshot and begins polling in the background.
func (p *Poller) Start() error {
	p.snapshot = p.takeSnapshot()
	go p.loop()
	return nil
}

// Stop halts the polling loop.
func (p *Poller) Stop() {
	close(p.stop)
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.pollOnce()
		case <-p.stop:
			return
		}
	}
}

func (p *Poller) pollOnce() {
	current := p.takeSnapshot()

	var changed, deleted []string
	for path, digest := range current {
		if prev, ok := p.snapshot[path]; !ok || prev != digest {
			changed = append(changed, path)
		}
	}
	for path := range p.snapshot {
		if _, ok := current[path]; !ok {
			deleted = append(deleted, path)
		}
	}
	p.snapshot = current

	if len(changed) > 0 || len(deleted) > 0 {
		p.emit(changed, deleted)
	}
}

func (p *Poller) takeSnapshot() map[string]string {
	sc := scanner.New(p.root, p.ignores, scanner.Config{}, p.logger)
	entries, err := sc.Scan()
	if err != nil {
		p.logger.Warn("poll scan failed", map[string]interface{}{"error": err.Error()})
		return p.snapshot
	}
	snap := make(map[string]string, len(entries))
	for _, e := range entries {
		snap[e.Path] = e.Digest
	}
	return snap
}
