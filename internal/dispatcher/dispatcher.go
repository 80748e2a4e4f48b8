// Package dispatcher is the thin fan-out in front of internal/query: it
// accepts {method, params}, validates params against each method's
// documented shape, invokes the corresponding engine method, and wraps
// the result in a response envelope carrying next_hops, warnings, and a
// result-size cap (spec §4.I).
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"cgraph/internal/config"
	"cgraph/internal/lang"
	"cgraph/internal/logging"
	"cgraph/internal/orchestrator"
	"cgraph/internal/query"
	"cgraph/internal/scanner"
)

// Error is a dispatcher-level failure, distinct from the engine's own
// errors, carrying a machine-readable code (spec §7 Security/Configuration
// error kinds).
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func invalidParams(format string, args ...interface{}) *Error {
	return &Error{Code: "invalid_params", Message: fmt.Sprintf(format, args...)}
}

func methodNotFound(method string) *Error {
	return &Error{Code: "method_not_found", Message: fmt.Sprintf("unknown method %q", method)}
}

func resultTooLarge(cap int) *Error {
	return &Error{Code: "result_too_large", Message: fmt.Sprintf("result exceeds %d byte cap; narrow the query", cap)}
}

// Envelope is the standard response wrapper every dispatcher call returns
// (grounded on the teacher's internal/envelope.Response, generalized to
// carry next_hops in place of suggestedNextCalls).
type Envelope struct {
	SchemaVersion string      `json:"schema_version"`
	Data          interface{} `json:"data,omitempty"`
	NextHops      []query.Hop `json:"next_hops,omitempty"`
	Warnings      []string    `json:"warnings,omitempty"`
	Error         *Error      `json:"error,omitempty"`
}

const schemaVersion = "1.0"

func errEnvelope(err *Error) *Envelope {
	return &Envelope{SchemaVersion: schemaVersion, Error: err}
}

// handlerFunc unmarshals raw params, invokes the engine, and returns the
// data payload plus any next_hops. It returns a *Error for validation
// failures (rendered as an envelope error) or a plain error for
// unexpected engine failures (also rendered as an envelope error, coded
// "internal").
type handlerFunc func(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, []query.Hop, error)

type methodEntry struct {
	name    string
	summary string
	handler handlerFunc
}

// Dispatcher owns the method registry and the collaborators its handlers
// invoke: the read-only query engine for most methods, and the
// orchestrator directly for the one write operation (reindex).
type Dispatcher struct {
	engine       *query.Engine
	cfg          *config.Config
	orchestrator *orchestrator.Orchestrator
	registry     *lang.Registry
	repoRoot     string
	logger       *logging.Logger

	methods map[string]methodEntry
}

// New builds a Dispatcher wired to engine for reads and orch for the
// reindex lifecycle method.
func New(repoRoot string, engine *query.Engine, orch *orchestrator.Orchestrator, registry *lang.Registry, cfg *config.Config, logger *logging.Logger) *Dispatcher {
	d := &Dispatcher{
		engine:       engine,
		cfg:          cfg,
		orchestrator: orch,
		registry:     registry,
		repoRoot:     repoRoot,
		logger:       logger,
	}
	d.methods = buildRegistry()
	return d
}

// Dispatch implements the {method, params} -> Envelope contract (spec
// §4.I).
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params json.RawMessage) *Envelope {
	entry, ok := d.methods[method]
	if !ok {
		return errEnvelope(methodNotFound(method))
	}

	data, hops, err := entry.handler(ctx, d, params)
	if err != nil {
		if de, ok := err.(*Error); ok {
			return errEnvelope(de)
		}
		return errEnvelope(&Error{Code: "internal", Message: err.Error()})
	}

	env := &Envelope{SchemaVersion: schemaVersion, Data: data, NextHops: hops}

	if cap := d.cfg.Dispatcher.ResultSizeCapBytes; cap > 0 {
		encoded, marshalErr := json.Marshal(env.Data)
		if marshalErr == nil && len(encoded) > cap {
			return errEnvelope(resultTooLarge(cap))
		}
	}
	return env
}

// Methods lists every registered method name, sorted, for list_methods.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// unmarshalParams decodes params into dst, treating an empty/nil params
// value as an empty object rather than an error.
func unmarshalParams(params json.RawMessage, dst interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return invalidParams("malformed params: %v", err)
	}
	return nil
}

// requireString validates that a parameter was supplied.
func requireString(field, value string) error {
	if value == "" {
		return invalidParams("%q is required", field)
	}
	return nil
}

var languageNames = []string{
	string(scanner.Go), string(scanner.Python), string(scanner.JavaScript),
	string(scanner.TypeScript), string(scanner.TSX), string(scanner.Java), string(scanner.Rust),
	string(scanner.SQL), string(scanner.Proto),
}
