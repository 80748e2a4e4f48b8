package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cgraph/internal/scanner"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the repository and incrementally reindex on change",
	Long: `watch starts a recursive filesystem watch (fsnotify, falling back to
polling when unavailable) and debounces changed/deleted paths into
incremental reindex rounds, per the same batching thresholds used for a
manual reindex. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a := mustBootstrap()
	defer a.close()

	ignores, err := scanner.LoadIgnoreSet(a.repoRoot, "")
	if err != nil {
		return fmt.Errorf("failed to load ignore rules: %w", err)
	}

	handler := newIncrementalHandler(a, ignores)
	w := newWatcher(a, ignores, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	a.logger.Info("watch started", map[string]interface{}{"repo": a.repoRoot})
	fmt.Fprintf(os.Stdout, "watching %s (ctrl-c to stop)\n", a.repoRoot)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	a.logger.Info("watch stopping", nil)
	return nil
}
