package main

import (
	"fmt"
	"os"

	"cgraph/internal/config"
	"cgraph/internal/dispatcher"
	"cgraph/internal/lang"
	"cgraph/internal/logging"
	"cgraph/internal/orchestrator"
	"cgraph/internal/query"
	"cgraph/internal/store"
)

// resolvedRepoRoot returns --repo if set, else the working directory.
func resolvedRepoRoot() string {
	if repoRootFlag != "" {
		return repoRootFlag
	}
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return wd
}

func newLogger() *logging.Logger {
	format := logging.Human
	if logFormatFlag == "json" {
		format = logging.JSON
	}
	return logging.New(logging.Config{Format: format, Level: logging.Info}, os.Stderr)
}

// app bundles the collaborators every subcommand needs, wired the
// way engine_helper.go's getEngine lazily assembles them.
type app struct {
	repoRoot     string
	cfg          *config.Config
	logger       *logging.Logger
	db           *store.DB
	registry     *lang.Registry
	orchestrator *orchestrator.Orchestrator
	engine       *query.Engine
	dispatcher   *dispatcher.Dispatcher
}

func mustBootstrap() *app {
	repoRoot := resolvedRepoRoot()
	logger := newLogger()

	cfg, err := config.Load(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	db, err := store.Open(repoRoot, cfg.Database.PoolSize, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening store: %v\n", err)
		os.Exit(1)
	}

	registry := lang.NewRegistry()
	orch := orchestrator.New(repoRoot, db, registry, cfg.Indexing, logger)
	engine := query.New(repoRoot, db, cfg, logger)
	disp := dispatcher.New(repoRoot, engine, orch, registry, cfg, logger)

	return &app{
		repoRoot: repoRoot, cfg: cfg, logger: logger, db: db,
		registry: registry, orchestrator: orch, engine: engine, dispatcher: disp,
	}
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}
