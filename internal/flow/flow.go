// Package flow implements cross-language flow tracing (spec §4.H
// trace_flow): a bounded BFS that widens its edge-kind filter at every
// language boundary and tags the hop that crossed it. Grounded on
// internal/impact's DirectLayer BFS shape, generalized from a single
// structural edge-kind filter to one that grows once a hop's source and
// target files disagree on language.
package flow

import (
	"context"

	"cgraph/internal/store"
)

// Direction names which side of the call graph the trace walks (spec
// §4.H trace_flow: "upstream" = callers, "downstream" = callees).
type Direction string

const (
	Upstream   Direction = "upstream"
	Downstream Direction = "downstream"
)

func (d Direction) storeDirection() store.Direction {
	if d == Upstream {
		return store.Incoming
	}
	return store.Outgoing
}

// structuralEdgeKinds are followed everywhere, inside or outside a
// language boundary.
var structuralEdgeKinds = []store.EdgeKind{
	store.EdgeCalls, store.EdgeImports, store.EdgeExtends,
	store.EdgeImplements, store.EdgeInherits, store.EdgeTypeRef,
}

// boundaryEdgeKinds are only followed once a hop crosses a language
// boundary (spec §4.H: "expands the edge-kind filter to include
// RPC_IMPL, HTTP_ROUTE/CALL, CHANNEL_*, and XREF").
var boundaryEdgeKinds = []store.EdgeKind{
	store.EdgeRPCImpl, store.EdgeRPCCall,
	store.EdgeHTTPRoute, store.EdgeHTTPCall,
	store.EdgeChannelPublish, store.EdgeChannelSubscribe,
	store.EdgeXRef,
}

// Hop is one step of a trace, annotated with a boundary tag when the
// edge that reached it crossed a language boundary.
type Hop struct {
	SymbolID        int64
	QualName        string
	FilePath        string
	Language        string
	Depth           int
	EdgeKind        store.EdgeKind
	Confidence      float64
	Boundary        string
	ProtocolContext []ProtocolMessage
}

// ProtocolMessage is a request/response message symbol attached to an
// RPC boundary hop (spec §4.H: "attaches the request/response message
// symbols as protocol context").
type ProtocolMessage struct {
	SymbolID int64
	QualName string
	Role     string // "request" or "response"
}

// Config bounds a trace (spec §6 trace_flow).
type Config struct {
	Direction Direction
	MaxDepth  int
	MaxNodes  int
}

func (c Config) withDefaults() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = 5
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = 500
	}
	if c.Direction == "" {
		c.Direction = Downstream
	}
	return c
}

// Trace runs a bounded, boundary-aware BFS from seed and returns every
// hop reached, in traversal order (spec §4.H trace_flow).
func Trace(ctx context.Context, db *store.DB, seed *store.Symbol, cfg Config) ([]Hop, error) {
	cfg = cfg.withDefaults()
	dir := cfg.Direction.storeDirection()

	seedFile, err := fileOf(db, seed.FileID)
	if err != nil {
		return nil, err
	}

	visited := map[int64]bool{seed.ID: true}
	type frontierEntry struct {
		symbolID int64
		language string
	}
	frontier := []frontierEntry{{symbolID: seed.ID, language: seedFile.Language}}
	var hops []Hop

	for depth := 1; depth <= cfg.MaxDepth && len(hops) < cfg.MaxNodes; depth++ {
		var next []frontierEntry
		for _, cur := range frontier {
			if err := ctx.Err(); err != nil {
				return hops, err
			}
			kinds := structuralEdgeKinds
			edges, err := db.GetEdgesForSymbol(cur.symbolID, dir, kinds, cfg.MaxNodes)
			if err != nil {
				return nil, err
			}
			boundaryEdges, err := db.GetEdgesForSymbol(cur.symbolID, dir, boundaryEdgeKinds, cfg.MaxNodes)
			if err != nil {
				return nil, err
			}
			structuralCount := len(edges)
			edges = append(edges, boundaryEdges...)

			for i, e := range edges {
				other := otherEnd(e, cur.symbolID)
				if other == nil || visited[*other] {
					continue
				}
				sym, err := db.GetSymbolByID(*other)
				if err != nil || sym == nil {
					continue
				}
				f, err := fileOf(db, sym.FileID)
				if err != nil || f == nil {
					continue
				}

				crosses := f.Language != "" && cur.language != "" && f.Language != cur.language
				if i >= structuralCount && !crosses {
					continue
				}
				boundary := ""
				if crosses {
					boundary = boundaryTag(e.Kind, sym.Kind)
				}

				visited[*other] = true
				next = append(next, frontierEntry{symbolID: *other, language: f.Language})

				hop := Hop{
					SymbolID: sym.ID, QualName: sym.QualName, FilePath: f.Path,
					Language: f.Language, Depth: depth, EdgeKind: e.Kind,
					Confidence: e.Confidence, Boundary: boundary,
				}
				if boundary == "rpc" {
					hop.ProtocolContext = protocolContext(db, sym.ID)
				}
				hops = append(hops, hop)

				if len(hops) >= cfg.MaxNodes {
					break
				}
			}
			if len(hops) >= cfg.MaxNodes {
				break
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	return hops, nil
}

func boundaryTag(kind store.EdgeKind, targetKind store.SymbolKind) string {
	switch kind {
	case store.EdgeRPCImpl, store.EdgeRPCCall:
		return "rpc"
	case store.EdgeHTTPRoute, store.EdgeHTTPCall:
		return "http"
	case store.EdgeChannelPublish, store.EdgeChannelSubscribe:
		return "channel"
	case store.EdgeXRef:
		if targetKind == store.KindSQLTable || targetKind == store.KindSQLProc {
			return "sql"
		}
		return "xref"
	default:
		return "xref"
	}
}

// protocolContext attaches proto message symbols referenced by an RPC
// method's own TYPE_REF edges as request/response context. The first
// referenced message is treated as the request, the second (if any) as
// the response — there is no dedicated "role" marker on TYPE_REF edges.
func protocolContext(db *store.DB, rpcSymbolID int64) []ProtocolMessage {
	edges, err := db.GetEdgesForSymbol(rpcSymbolID, store.Outgoing, []store.EdgeKind{store.EdgeTypeRef}, 10)
	if err != nil {
		return nil
	}
	var out []ProtocolMessage
	roles := []string{"request", "response"}
	for _, e := range edges {
		if e.TargetSymbolID == nil {
			continue
		}
		msg, err := db.GetSymbolByID(*e.TargetSymbolID)
		if err != nil || msg == nil || msg.Kind != store.KindProtoMsg {
			continue
		}
		role := "related"
		if len(out) < len(roles) {
			role = roles[len(out)]
		}
		out = append(out, ProtocolMessage{SymbolID: msg.ID, QualName: msg.QualName, Role: role})
	}
	return out
}

func fileOf(db *store.DB, fileID int64) (*store.File, error) {
	path, err := db.FilePathOf(fileID)
	if err != nil {
		return nil, err
	}
	return db.GetFileByPath(path)
}

func otherEnd(e store.Edge, from int64) *int64 {
	if e.SourceSymbolID != nil && *e.SourceSymbolID != from {
		return e.SourceSymbolID
	}
	if e.TargetSymbolID != nil && *e.TargetSymbolID != from {
		return e.TargetSymbolID
	}
	return nil
}
