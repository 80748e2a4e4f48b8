package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cgraph/internal/dispatcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dispatcher methods over a line-delimited JSON stream",
	Long: `serve reads one JSON request per line from stdin and writes one
JSON response per line to stdout:

  {"id": "1", "method": "find_symbol", "params": {"query": "Foo"}}

Each response echoes the request id alongside the dispatcher envelope
(schema_version, data, next_hops, warnings, error). This is a minimal
transport for local tooling, not a general-purpose RPC protocol.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type response struct {
	ID string `json:"id"`
	*dispatcher.Envelope
}

func runServe(cmd *cobra.Command, args []string) error {
	a := mustBootstrap()
	defer a.close()

	a.logger.Info("serve started", map[string]interface{}{"repo": a.repoRoot})

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	ctx := context.Background()
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			writeLine(out, response{Envelope: &dispatcher.Envelope{
				SchemaVersion: "1.0",
				Error:         &dispatcher.Error{Code: "invalid_params", Message: fmt.Sprintf("malformed request: %v", err)},
			}})
			continue
		}

		env := a.dispatcher.Dispatch(ctx, req.Method, req.Params)
		writeLine(out, response{ID: req.ID, Envelope: env})
	}
	out.Flush()

	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("stdin read error: %w", err)
	}
	a.logger.Info("serve stopped", nil)
	return nil
}

func writeLine(w *bufio.Writer, r response) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	w.Write(data)
	w.WriteByte('\n')
	w.Flush()
}
