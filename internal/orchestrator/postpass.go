package orchestrator

import (
	"database/sql"
	"regexp"
	"strings"

	"cgraph/internal/batch"
	"cgraph/internal/lang"
	"cgraph/internal/store"
)

// Cross-language detectors cheap only once the intra-file graph is known
// (spec §4.F PostPass), grounded on the teacher's federation/detector_openapi.go
// regexp-driven contract detection style: route-to-call linking, channel
// pub/sub linking, proto-to-implementation linking, and textual XREFs.
// Route registrations themselves are recovered at the AST level (extractor
// side, spec §4.C); this pass links what the extractors already found
// against textual call sites and cross-language name matches.
var (
	httpCallLiteral  = regexp.MustCompile(`(?i)(?:fetch|requests\.(?:get|post|put|delete)|http\.(?:Get|Post)|axios\.(?:get|post))\(\s*["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]`)
	channelPublish   = regexp.MustCompile(`(?i)\.(?:Publish|publish|emit)\(\s*["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]`)
	channelSubscribe = regexp.MustCompile(`(?i)\.(?:Subscribe|subscribe)\(\s*["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]`)
)

type routeMatch struct {
	path string
	file string
}

// routeSymbolRef is a KindRoute symbol an extractor already produced this
// round, decoded back into (method, path) for textual call linking and
// OpenAPI corroboration.
type routeSymbolRef struct {
	qual   string
	method string
	path   string
}

// symbolRef is a lightweight cross-file symbol reference used by the
// proto-implementation and XREF detectors below, which reason about
// symbol kind/name/language rather than raw text.
type symbolRef struct {
	name     string
	qual     string
	file     string
	lang     string
	isMethod bool
}

// runPostPass scans each file's raw source and freshly-extracted symbols
// for cross-file evidence — HTTP routes/calls, pub/sub channels,
// proto-to-implementation matches, and cross-language textual references —
// and links matches as low-confidence structural edges (spec: "PostPass
// emits edges with confidence < 1.0 reflecting that matches are textual").
func (o *Orchestrator) runPostPass(results []batch.FileResult, sources map[string][]byte) (int, error) {
	var calls, publishes, subscribes []routeMatch
	var protoServices, protoMethods, sqlObjects, otherSymbols []symbolRef
	var routes []routeSymbolRef

	for _, r := range results {
		if r.Deleted {
			continue
		}
		if src := sources[r.Path]; src != nil {
			text := string(src)
			for _, m := range httpCallLiteral.FindAllStringSubmatch(text, -1) {
				calls = append(calls, routeMatch{path: m[1], file: r.Path})
			}
			for _, m := range channelPublish.FindAllStringSubmatch(text, -1) {
				publishes = append(publishes, routeMatch{path: m[1], file: r.Path})
			}
			for _, m := range channelSubscribe.FindAllStringSubmatch(text, -1) {
				subscribes = append(subscribes, routeMatch{path: m[1], file: r.Path})
			}
		}
		for _, sym := range r.Extracted.Symbols {
			switch sym.Kind {
			case store.KindRoute:
				parts := strings.SplitN(sym.Name, " ", 2)
				if len(parts) == 2 {
					routes = append(routes, routeSymbolRef{qual: sym.QualName, method: parts[0], path: parts[1]})
				}
			case store.KindProtoSvc:
				protoServices = append(protoServices, symbolRef{name: sym.Name, qual: sym.QualName, file: r.Path, lang: r.Language})
			case store.KindRPCMethod:
				protoMethods = append(protoMethods, symbolRef{name: sym.Name, qual: sym.QualName, file: r.Path, lang: r.Language})
			case store.KindSQLTable, store.KindSQLProc:
				sqlObjects = append(sqlObjects, symbolRef{name: sym.Name, qual: sym.QualName, file: r.Path, lang: r.Language})
			case store.KindClass, store.KindStruct, store.KindInterface, store.KindRPCService:
				otherSymbols = append(otherSymbols, symbolRef{name: sym.Name, qual: sym.QualName, file: r.Path, lang: r.Language})
			case store.KindMethod, store.KindFunction:
				otherSymbols = append(otherSymbols, symbolRef{name: sym.Name, qual: sym.QualName, file: r.Path, lang: r.Language, isMethod: true})
			}
		}
	}

	openapiRoutes := lang.LoadOpenAPIRoutes(o.repoRoot)

	linked := 0
	err := o.db.WithTx(func(tx *sql.Tx) error {
		// (a) route-to-call linking: an HTTP client call whose literal URL
		// matches a route the extractors already recorded.
		for _, call := range calls {
			for _, route := range routes {
				if !pathsMatch(call.path, route.path) {
					continue
				}
				callFileID, err := fileIDTx(tx, call.file)
				if err != nil || callFileID == 0 {
					continue
				}
				if _, err := store.InsertEdgeTx(tx, &store.Edge{
					Kind: store.EdgeHTTPCall, SourceFileID: &callFileID, TargetQualName: route.qual,
					Evidence: "textual URL match: " + call.path, Confidence: 0.6,
				}); err != nil {
					return err
				}
				linked++
			}
		}

		// (b) channel pub/sub linking: publish and subscribe calls that
		// name the same channel in different files.
		for _, pub := range publishes {
			for _, sub := range subscribes {
				if pub.path != sub.path || pub.file == sub.file {
					continue
				}
				pubFileID, err := fileIDTx(tx, pub.file)
				if err != nil || pubFileID == 0 {
					continue
				}
				if _, err := store.InsertEdgeTx(tx, &store.Edge{
					Kind: store.EdgeChannelPublish, SourceFileID: &pubFileID, TargetQualName: sub.file + "#" + sub.path,
					Evidence: "channel name match: " + pub.path, Confidence: 0.5,
				}); err != nil {
					return err
				}
				linked++
			}
		}

		// (c) proto-to-implementation linking: a class/method in a
		// different-language file whose name matches a proto service or
		// rpc method (spec §8 scenario E's TriggerService -> handler hop).
		for _, svc := range protoServices {
			for _, cand := range otherSymbols {
				if cand.isMethod || cand.lang == svc.lang || !strings.Contains(cand.name, svc.name) {
					continue
				}
				candFileID, err := fileIDTx(tx, cand.file)
				if err != nil || candFileID == 0 {
					continue
				}
				if _, err := store.InsertEdgeTx(tx, &store.Edge{
					Kind: store.EdgeRPCImpl, SourceFileID: &candFileID, TargetQualName: svc.qual,
					Evidence: "type name matches rpc service " + svc.name, Confidence: 0.5,
				}); err != nil {
					return err
				}
				linked++
			}
		}
		for _, m := range protoMethods {
			for _, cand := range otherSymbols {
				if !cand.isMethod || cand.lang == m.lang || cand.name != m.name {
					continue
				}
				candFileID, err := fileIDTx(tx, cand.file)
				if err != nil || candFileID == 0 {
					continue
				}
				if _, err := store.InsertEdgeTx(tx, &store.Edge{
					Kind: store.EdgeRPCImpl, SourceFileID: &candFileID, TargetQualName: m.qual,
					Evidence: "method name matches rpc method " + m.name, Confidence: 0.65,
				}); err != nil {
					return err
				}
				linked++
			}
		}

		// (d) textual cross-language XREFs: a SQL object or class name that
		// literally appears in a different-language file's source, e.g. a
		// Python data-access module naming a stored procedure directly.
		for _, r := range results {
			if r.Deleted {
				continue
			}
			src := sources[r.Path]
			if src == nil {
				continue
			}
			text := string(src)
			for _, sqlObj := range sqlObjects {
				if sqlObj.file == r.Path || len(sqlObj.name) < 3 || !containsIdentifier(text, sqlObj.name) {
					continue
				}
				fileID, err := fileIDTx(tx, r.Path)
				if err != nil || fileID == 0 {
					continue
				}
				if _, err := store.InsertEdgeTx(tx, &store.Edge{
					Kind: store.EdgeXRef, SourceFileID: &fileID, TargetQualName: sqlObj.qual,
					Evidence: "textual reference to " + sqlObj.name, Confidence: 0.4,
				}); err != nil {
					return err
				}
				linked++
			}
			for _, cls := range otherSymbols {
				if cls.isMethod || cls.lang == r.Language || cls.file == r.Path || len(cls.name) < 6 {
					continue
				}
				if !containsIdentifier(text, cls.name) {
					continue
				}
				fileID, err := fileIDTx(tx, r.Path)
				if err != nil || fileID == 0 {
					continue
				}
				if _, err := store.InsertEdgeTx(tx, &store.Edge{
					Kind: store.EdgeXRef, SourceFileID: &fileID, TargetQualName: cls.qual,
					Evidence: "textual reference to " + cls.name, Confidence: 0.35,
				}); err != nil {
					return err
				}
				linked++
			}
		}

		// OpenAPI/Swagger corroboration: a route the extractors found that
		// also appears literally in the repo's own contract document gets
		// bumped to full confidence.
		for _, route := range routes {
			conf := lang.CorroborateRoute(openapiRoutes, route.method, route.path, 0.85)
			if conf == 0.85 {
				continue
			}
			if _, err := tx.Exec(`UPDATE edges SET confidence = ? WHERE kind = ? AND target_qualname = ?`,
				conf, store.EdgeHTTPRoute, route.qual); err != nil {
				return err
			}
		}
		return nil
	})
	return linked, err
}

func containsIdentifier(text, name string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], name)
		if i < 0 {
			return false
		}
		pos := idx + i
		var before, after byte
		if pos > 0 {
			before = text[pos-1]
		}
		if pos+len(name) < len(text) {
			after = text[pos+len(name)]
		}
		if !isIdentByte(before) && !isIdentByte(after) {
			return true
		}
		idx = pos + 1
		if idx >= len(text) {
			return false
		}
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func pathsMatch(a, b string) bool {
	if a == b {
		return true
	}
	return len(a) > 0 && len(b) > 0 && (hasSuffixPath(a, b) || hasSuffixPath(b, a))
}

func hasSuffixPath(longer, shorter string) bool {
	if len(shorter) >= len(longer) {
		return false
	}
	return longer[len(longer)-len(shorter):] == shorter
}

func fileIDTx(tx *sql.Tx, path string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM files WHERE path = ? AND deleted_version IS NULL`, path).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}
