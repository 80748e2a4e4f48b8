package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cgraph/internal/scanner"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Force a fresh full reindex of an already-indexed repository",
	Long: `reindex re-scans and re-extracts every file, diffs each file's
symbols against the store's existing ones (unchanged symbols keep their
rows), and commits the result as a new graph version.
Unlike index, it does not write a starter .cgraph/config.json — it expects
one to already exist.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	a := mustBootstrap()
	defer a.close()

	ignores, err := scanner.LoadIgnoreSet(a.repoRoot, "")
	if err != nil {
		return fmt.Errorf("failed to load ignore rules: %w", err)
	}

	result, err := a.orchestrator.FullReindex(context.Background(), ignores)
	if err != nil {
		return fmt.Errorf("full reindex failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "reindexed round=%s state=%s files=%d duration=%s\n",
		result.RoundID, result.State, result.Stats.FilesWritten, result.Duration)
	return nil
}
