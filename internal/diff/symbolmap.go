package diff

import (
	"sort"
	"strings"

	"cgraph/internal/store"
)

// MapToSymbols maps a parsed diff's changed lines onto live symbols in
// db, one ChangedSymbol per overlapping symbol per file (spec §4.H:
// "maps changed line ranges to enclosing symbols"). Files are looked up by
// their live row only: a deleted file whose deletion is not yet indexed
// maps its removed lines against its still-live symbols, while one whose
// deletion has landed has no live row and gets a single low-confidence
// fallback entry; earlier graph versions are not consulted.
func MapToSymbols(db *store.DB, parsed *ParsedDiff) ([]ChangedSymbol, error) {
	var result []ChangedSymbol
	for _, file := range parsed.Files {
		if !IsSourceFile(effectivePathOrOld(file)) {
			continue
		}
		symbols, err := mapFile(db, file)
		if err != nil {
			continue
		}
		result = append(result, symbols...)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Confidence != result[j].Confidence {
			return result[i].Confidence > result[j].Confidence
		}
		return result[i].QualName < result[j].QualName
	})
	return result, nil
}

func effectivePathOrOld(cf ChangedFile) string {
	if cf.NewPath != "" {
		return cf.NewPath
	}
	return cf.OldPath
}

func mapFile(db *store.DB, file ChangedFile) ([]ChangedSymbol, error) {
	path := EffectivePath(file)
	if path == "" {
		return nil, nil
	}

	f, err := db.GetFileByPath(path)
	if err != nil || f == nil {
		return lowConfidenceFallback(file, path), nil
	}

	changeType := ChangeModified
	if file.IsNew {
		changeType = ChangeAdded
	} else if file.Deleted {
		changeType = ChangeDeleted
	}

	changedLines := map[int]bool{}
	for _, h := range file.Hunks {
		lines := h.Added
		if file.Deleted {
			lines = h.Removed
		}
		for _, l := range lines {
			changedLines[l] = true
		}
	}
	if len(changedLines) == 0 {
		return nil, nil
	}

	symbols, err := db.GetLiveSymbolsForFile(f.ID)
	if err != nil {
		return nil, err
	}

	var result []ChangedSymbol
	for _, sym := range symbols {
		var lines []int
		confidence := 0.0
		for line := range changedLines {
			if line < sym.StartLine || line > sym.EndLine {
				continue
			}
			lines = append(lines, line)
			switch {
			case line == sym.StartLine:
				confidence = 1.0
			case confidence < 0.8:
				confidence = 0.8
			}
		}
		if len(lines) == 0 {
			continue
		}
		sort.Ints(lines)
		newSig := declarationText(file, sym.StartLine)
		if newSig == "" {
			newSig = sym.Signature
		}
		result = append(result, ChangedSymbol{
			SymbolID:     sym.ID,
			StableID:     sym.StableID,
			QualName:     sym.QualName,
			Name:         sym.Name,
			File:         path,
			ChangeType:   changeType,
			Lines:        lines,
			Confidence:   confidence,
			OldSignature: sym.Signature,
			NewSignature: newSig,
		})
	}
	return result, nil
}

// declarationText recovers the post-change text of a symbol's declaration
// line straight from the diff's added-line content, rather than the
// store (which still holds the pre-change row until the diff is
// reindexed). It mirrors the truncate-at-brace-or-newline shape that the
// language extractors use for Signature, so a real edit compares as
// different and a whitespace-only or unrelated hunk compares as equal.
func declarationText(file ChangedFile, startLine int) string {
	for _, h := range file.Hunks {
		if raw, ok := h.AddedText[startLine]; ok {
			return truncateAtBrace(raw)
		}
	}
	return ""
}

func truncateAtBrace(line string) string {
	if i := strings.IndexAny(line, "{"); i >= 0 {
		return strings.TrimSpace(line[:i])
	}
	return strings.TrimSpace(line)
}

// lowConfidenceFallback records the whole file as one changed entity
// when it isn't in the store yet (e.g. the diff hasn't been indexed).
func lowConfidenceFallback(file ChangedFile, path string) []ChangedSymbol {
	if path == "" {
		return nil
	}
	changeType := ChangeModified
	if file.IsNew {
		changeType = ChangeAdded
	} else if file.Deleted {
		changeType = ChangeDeleted
	}
	return []ChangedSymbol{{
		QualName:   path,
		Name:       path,
		File:       path,
		ChangeType: changeType,
		Confidence: 0.3,
	}}
}
