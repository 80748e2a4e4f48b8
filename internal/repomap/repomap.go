// Package repomap assembles the repository map digest (spec §4.H
// repo_map): modules grouped by leaf directory, inter-module edge
// counts, top-N symbols per module by fan-in, and architectural pattern
// counts, all under a deterministic ordering and a byte budget.
package repomap

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"cgraph/internal/store"
)

// topSymbolsPerModule bounds how many symbols repo_map keeps per module
// before budget trimming even applies.
const topSymbolsPerModule = 10

// SymbolDigest is one symbol surfaced in a module's top-N list.
type SymbolDigest struct {
	QualName string `json:"qualname"`
	Kind     string `json:"kind"`
	FanIn    int    `json:"fan_in"`
}

// Module is one leaf-directory grouping of files.
type Module struct {
	Path             string         `json:"path"`
	FileCount        int            `json:"file_count"`
	DominantLanguage string         `json:"dominant_language"`
	SymbolCount      int            `json:"symbol_count"`
	TopSymbols       []SymbolDigest `json:"top_symbols"`
}

// ModuleEdge is an aggregated edge count between two modules.
type ModuleEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// Map is the full repo_map digest.
type Map struct {
	Modules             []Module       `json:"modules"`
	ModuleEdges         []ModuleEdge   `json:"module_edges"`
	ArchitecturalCounts map[string]int `json:"architectural_counts"`
	Truncated           bool           `json:"truncated,omitempty"`
}

// moduleOf returns the leaf directory a file belongs to (spec §4.H:
// "modules (leaf = directory)").
func moduleOf(path string) string {
	dir := filepath.ToSlash(filepath.Dir(path))
	if dir == "." {
		return "."
	}
	return dir
}

// Build assembles the full digest, then trims it to fit budgetBytes when
// budgetBytes > 0 (spec §4.H repo_map(budget_bytes)).
func Build(db *store.DB, budgetBytes int) (*Map, error) {
	files, err := db.GetAllLiveFiles()
	if err != nil {
		return nil, err
	}

	type moduleAccum struct {
		files     int
		languages map[string]int
		symbols   []SymbolDigest
	}
	accum := map[string]*moduleAccum{}
	archCounts := map[string]int{}

	for _, f := range files {
		mpath := moduleOf(f.Path)
		acc, ok := accum[mpath]
		if !ok {
			acc = &moduleAccum{languages: map[string]int{}}
			accum[mpath] = acc
		}
		acc.files++
		if f.Language != "" {
			acc.languages[f.Language]++
		}

		symbols, err := db.GetLiveSymbolsForFile(f.ID)
		if err != nil {
			continue
		}
		for _, sym := range symbols {
			acc.symbols = append(acc.symbols, SymbolDigest{
				QualName: sym.QualName, Kind: string(sym.Kind), FanIn: sym.FanIn,
			})
			archCounts[archPatternKey(sym.Kind)]++
		}
	}

	modules := make([]Module, 0, len(accum))
	for path, acc := range accum {
		sort.Slice(acc.symbols, func(i, j int) bool {
			if acc.symbols[i].FanIn != acc.symbols[j].FanIn {
				return acc.symbols[i].FanIn > acc.symbols[j].FanIn
			}
			return acc.symbols[i].QualName < acc.symbols[j].QualName
		})
		top := acc.symbols
		if len(top) > topSymbolsPerModule {
			top = top[:topSymbolsPerModule]
		}
		modules = append(modules, Module{
			Path: path, FileCount: acc.files, DominantLanguage: dominantLanguage(acc.languages),
			SymbolCount: len(acc.symbols), TopSymbols: top,
		})
	}

	sort.Slice(modules, func(i, j int) bool {
		if modules[i].SymbolCount != modules[j].SymbolCount {
			return modules[i].SymbolCount > modules[j].SymbolCount
		}
		iFanIn, jFanIn := 0, 0
		if len(modules[i].TopSymbols) > 0 {
			iFanIn = modules[i].TopSymbols[0].FanIn
		}
		if len(modules[j].TopSymbols) > 0 {
			jFanIn = modules[j].TopSymbols[0].FanIn
		}
		if iFanIn != jFanIn {
			return iFanIn > jFanIn
		}
		return modules[i].Path < modules[j].Path
	})

	moduleEdges, err := buildModuleEdges(db)
	if err != nil {
		return nil, err
	}

	m := &Map{Modules: modules, ModuleEdges: moduleEdges, ArchitecturalCounts: archCounts}
	if budgetBytes > 0 {
		trimToBudget(m, budgetBytes)
	}
	return m, nil
}

func dominantLanguage(counts map[string]int) string {
	best, bestCount := "", -1
	langs := make([]string, 0, len(counts))
	for l := range counts {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	for _, l := range langs {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best
}

func archPatternKey(kind store.SymbolKind) string {
	switch kind {
	case store.KindRPCService:
		return "rpc_services"
	case store.KindRPCMethod:
		return "rpc_methods"
	case store.KindRoute:
		return "routes"
	case store.KindSQLTable:
		return "sql_tables"
	case store.KindSQLProc:
		return "sql_procedures"
	case store.KindProtoSvc:
		return "proto_services"
	case store.KindProtoMsg:
		return "proto_messages"
	default:
		return "other_symbols"
	}
}

func buildModuleEdges(db *store.DB) ([]ModuleEdge, error) {
	edges, err := db.GetAllResolvedEdges(0)
	if err != nil {
		return nil, err
	}

	counts := map[[2]string]int{}
	for _, e := range edges {
		sourcePath, ok := sourceFilePath(db, e)
		if !ok {
			continue
		}
		targetSym, err := db.GetSymbolByID(*e.TargetSymbolID)
		if err != nil || targetSym == nil {
			continue
		}
		targetPath, err := db.FilePathOf(targetSym.FileID)
		if err != nil {
			continue
		}
		from, to := moduleOf(sourcePath), moduleOf(targetPath)
		if from == to {
			continue
		}
		counts[[2]string{from, to}]++
	}

	out := make([]ModuleEdge, 0, len(counts))
	for pair, count := range counts {
		out = append(out, ModuleEdge{From: pair[0], To: pair[1], Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out, nil
}

func sourceFilePath(db *store.DB, e store.Edge) (string, bool) {
	if e.SourceFileID != nil {
		p, err := db.FilePathOf(*e.SourceFileID)
		if err == nil && p != "" {
			return p, true
		}
	}
	if e.SourceSymbolID != nil {
		sym, err := db.GetSymbolByID(*e.SourceSymbolID)
		if err == nil && sym != nil {
			p, err := db.FilePathOf(sym.FileID)
			if err == nil && p != "" {
				return p, true
			}
		}
	}
	return "", false
}

// trimToBudget drops the lowest-priority modules — following the same
// symbol-count-desc/fan-in-desc/path-asc order the digest is already
// sorted in — until the marshaled digest fits budgetBytes.
func trimToBudget(m *Map, budgetBytes int) {
	for len(m.Modules) > 0 {
		size, err := marshaledSize(m)
		if err != nil || size <= budgetBytes {
			return
		}
		m.Modules = m.Modules[:len(m.Modules)-1]
		m.Truncated = true
	}
}

func marshaledSize(m *Map) (int, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
