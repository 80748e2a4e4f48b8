package main

import (
	"github.com/spf13/cobra"
)

// version is stamped by release tooling; a plain package var rather than a
// dedicated package since nothing else in the module needs it.
var version = "0.1.0-dev"

var (
	repoRootFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "cgraphd",
	Short: "cgraph - local-first code intelligence server",
	Long: `cgraphd indexes a repository into a call/import/reference graph and
serves symbol lookup, impact analysis, context assembly, and search over it
without running the code.`,
	Version: version,
}

func init() {
	rootCmd.SetVersionTemplate("cgraphd version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoRootFlag, "repo", "", "repository root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "human", "log format: human or json")
}
