package identity

import "cgraph/internal/store"

// ExtractedSymbol is the extractor's output shape before it has a row id;
// Extractors (internal/lang) produce these, the differ turns them into a
// Delta against the store's current symbols for the file.
type ExtractedSymbol struct {
	Kind      store.SymbolKind
	Name      string
	QualName  string
	Signature string
	StartLine int
	EndLine   int
	StartCol  int
	EndCol    int
	Docstring string
}

// StableID computes this symbol's content-based identity.
func (s ExtractedSymbol) StableID() string {
	return StableID(Fingerprint{QualName: s.QualName, Signature: s.Signature, Kind: string(s.Kind)})
}

// Delta is the differ's output (spec §4.D): four disjoint sets.
type Delta struct {
	Added     []ExtractedSymbol
	Deleted   []store.Symbol
	Modified  []ModifiedPair
	Unchanged []store.Symbol
}

// ModifiedPair links a previously stored symbol to its fresh extraction
// when the stable_id matches but span/signature/docstring differs.
type ModifiedPair struct {
	Existing store.Symbol
	Fresh    ExtractedSymbol
}

// Diff computes Delta by comparing the store's current live symbols for a
// file against a fresh extraction, keyed on stable_id (spec §4.D).
func Diff(existing []store.Symbol, fresh []ExtractedSymbol) Delta {
	existingByID := make(map[string]store.Symbol, len(existing))
	for _, s := range existing {
		existingByID[s.StableID] = s
	}
	seen := make(map[string]bool, len(fresh))

	var d Delta
	for _, f := range fresh {
		id := f.StableID()
		seen[id] = true
		old, ok := existingByID[id]
		if !ok {
			d.Added = append(d.Added, f)
			continue
		}
		if symbolChanged(old, f) {
			d.Modified = append(d.Modified, ModifiedPair{Existing: old, Fresh: f})
		} else {
			d.Unchanged = append(d.Unchanged, old)
		}
	}
	for _, s := range existing {
		if !seen[s.StableID] {
			d.Deleted = append(d.Deleted, s)
		}
	}
	return d
}

// symbolChanged reports whether span, signature, or docstring differ
// byte-for-byte even though the stable_id matched (spec §3 Lifecycle).
func symbolChanged(old store.Symbol, fresh ExtractedSymbol) bool {
	return old.StartLine != fresh.StartLine ||
		old.EndLine != fresh.EndLine ||
		old.StartCol != fresh.StartCol ||
		old.EndCol != fresh.EndCol ||
		old.Signature != fresh.Signature ||
		old.Docstring != fresh.Docstring
}
