package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current graph version and working-tree state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a := mustBootstrap()
	defer a.close()

	res, err := a.engine.IndexStatus(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read index status: %w", err)
	}

	dirty := "clean"
	if res.Dirty {
		dirty = "dirty"
	}
	fmt.Fprintf(os.Stdout, "graph_version=%d working_tree=%s head=%s\n",
		res.GraphVersion, dirty, res.Provenance.RepoState.HeadCommit)
	return nil
}
