package diff

import (
	"context"
	"fmt"

	"cgraph/internal/impact"
	"cgraph/internal/store"
)

// AnalyzeDiff runs the whole change-review pipeline over a unified diff
// text: parse, map to live symbols, classify each change, score risk
// factors, and build an actionable checklist (spec §4.H analyze_diff).
func AnalyzeDiff(ctx context.Context, db *store.DB, diffText string) (*Report, error) {
	parsed, err := Parse(diffText)
	if err != nil {
		return nil, err
	}

	symbols, err := MapToSymbols(db, parsed)
	if err != nil {
		return nil, err
	}

	diffFiles := map[string]bool{}
	for _, f := range parsed.Files {
		if p := EffectivePath(f); p != "" {
			diffFiles[p] = true
		}
	}

	for i := range symbols {
		if err := ClassifyAndScore(ctx, db, &symbols[i]); err != nil {
			continue
		}
	}
	AttachMissingCoChangePartners(db, symbols, diffFiles)

	checklist := buildChecklist(ctx, db, symbols)

	return &Report{Files: parsed.Files, Symbols: symbols, Checklist: checklist}, nil
}

func buildChecklist(ctx context.Context, db *store.DB, symbols []ChangedSymbol) []ChecklistItem {
	var items []ChecklistItem
	for _, sym := range symbols {
		for _, r := range sym.Risks {
			switch r.Factor {
			case RiskSignatureChangeHighFanIn:
				items = append(items, callerNamingItem(ctx, db, sym))
			case RiskNoTestCoverage:
				items = append(items, ChecklistItem{
					SymbolQualName: sym.QualName,
					Text:           fmt.Sprintf("Add test coverage for %s before merging", sym.QualName),
				})
			case RiskInterfaceMethodChange:
				items = append(items, ChecklistItem{
					SymbolQualName: sym.QualName,
					Text:           fmt.Sprintf("Verify every implementation of the interface %s satisfies", sym.QualName),
				})
			case RiskCrossLanguageCaller:
				items = append(items, ChecklistItem{
					SymbolQualName: sym.QualName,
					Text:           fmt.Sprintf("Check cross-language callers of %s: %s", sym.QualName, r.Detail),
				})
			case RiskMissingCoChangePartner:
				items = append(items, ChecklistItem{
					SymbolQualName: sym.QualName,
					Text:           fmt.Sprintf("Review %s: %s", sym.QualName, r.Detail),
				})
			}
		}
	}
	return items
}

// callerNamingItem names at least one concrete caller file for a
// high-fan-in signature change, using the Direct impact layer upstream
// of the symbol (spec Scenario C: "the checklist includes at least one
// item naming a caller file").
func callerNamingItem(ctx context.Context, db *store.DB, sym ChangedSymbol) ChecklistItem {
	live, err := db.GetSymbolByID(sym.SymbolID)
	if err != nil || live == nil {
		return ChecklistItem{
			SymbolQualName: sym.QualName,
			Text:           fmt.Sprintf("Review all callers of %s before merging this signature change", sym.QualName),
		}
	}

	res, err := impact.DirectLayer{}.Run(ctx, db, live, impact.Config{Direction: impact.Upstream, MaxDepth: 1})
	if err != nil || len(res.Items) == 0 {
		return ChecklistItem{
			SymbolQualName: sym.QualName,
			Text:           fmt.Sprintf("Review all callers of %s before merging this signature change", sym.QualName),
		}
	}
	return ChecklistItem{
		SymbolQualName: sym.QualName,
		Text: fmt.Sprintf("Update caller %s in %s for the new signature of %s",
			res.Items[0].QualName, res.Items[0].FilePath, sym.QualName),
	}
}
