package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and environment issues",
	Long: `doctor checks that the repository is indexable and that the
optional external tools cgraph benefits from (git, ripgrep) are present,
without requiring a reindex.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctorCheck struct {
	Name string
	OK   bool
	Note string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a := mustBootstrap()
	defer a.close()

	var checks []doctorCheck

	if err := a.cfg.Validate(); err != nil {
		checks = append(checks, doctorCheck{"config", false, err.Error()})
	} else {
		checks = append(checks, doctorCheck{"config", true, ""})
	}

	if _, err := exec.LookPath("git"); err != nil {
		checks = append(checks, doctorCheck{"git", false, "git not found on PATH; repo-state and co-change queries will degrade"})
	} else {
		checks = append(checks, doctorCheck{"git", true, ""})
	}

	if _, err := exec.LookPath("rg"); err != nil {
		checks = append(checks, doctorCheck{"ripgrep", false, "rg not found on PATH; search_text falls back to an in-process regexp scan"})
	} else {
		checks = append(checks, doctorCheck{"ripgrep", true, ""})
	}

	if v, err := a.db.CurrentGraphVersion(); err != nil {
		checks = append(checks, doctorCheck{"store", false, err.Error()})
	} else if v == 0 {
		checks = append(checks, doctorCheck{"store", false, "no committed graph version yet; run `cgraphd index`"})
	} else {
		checks = append(checks, doctorCheck{"store", true, fmt.Sprintf("graph_version=%d", v)})
	}

	status, err := a.engine.DiagnosticsStatus(context.Background())
	if err != nil {
		checks = append(checks, doctorCheck{"diagnostics", false, err.Error()})
	} else if status.ParseErrorCount > 0 {
		checks = append(checks, doctorCheck{"diagnostics", false, fmt.Sprintf("%d parse errors across %d files", status.ParseErrorCount, len(status.Files))})
	} else {
		checks = append(checks, doctorCheck{"diagnostics", true, ""})
	}

	failed := 0
	for _, c := range checks {
		mark := "ok"
		if !c.OK {
			mark = "FAIL"
			failed++
		}
		if c.Note != "" {
			fmt.Fprintf(os.Stdout, "[%s] %-12s %s\n", mark, c.Name, c.Note)
		} else {
			fmt.Fprintf(os.Stdout, "[%s] %-12s\n", mark, c.Name)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}
