package diff

import (
	"context"
	"fmt"

	"cgraph/internal/impact"
	"cgraph/internal/store"
)

// highFanInThreshold is the fan-in at or above which a signature change is
// flagged critical rather than merely noted (spec Scenario C: 12
// callers triggers the factor).
const highFanInThreshold = 3

// coChangeConfidenceThreshold is the confidence above which an absent
// co-change partner is worth flagging.
const coChangeConfidenceThreshold = 0.5

// ClassifyAndScore fills in ChangeType and Signature fields by comparing
// a symbol's pre-change and post-change signatures, then attaches the
// closed set of risk factors (spec §4.H).
func ClassifyAndScore(ctx context.Context, db *store.DB, sym *ChangedSymbol) error {
	live, err := db.GetSymbolByID(sym.SymbolID)
	if err != nil || live == nil {
		return nil
	}

	if sym.ChangeType == ChangeModified {
		classifySignatureChange(db, sym, live)
	}

	if sym.ChangeType == ChangeSignatureChanged && live.FanIn >= highFanInThreshold {
		sym.Risks = append(sym.Risks, Risk{
			Factor:   RiskSignatureChangeHighFanIn,
			Severity: riskSeverity[RiskSignatureChangeHighFanIn],
			Detail:   fmt.Sprintf("%d callers depend on this signature", live.FanIn),
		})
	}

	if live.Kind == store.KindMethod || live.Kind == store.KindInterface {
		implements, err := db.GetEdgesForSymbol(live.ID, store.Incoming, []store.EdgeKind{store.EdgeImplements, store.EdgeInherits}, 1)
		if err == nil && len(implements) > 0 {
			sym.Risks = append(sym.Risks, Risk{
				Factor:   RiskInterfaceMethodChange,
				Severity: riskSeverity[RiskInterfaceMethodChange],
				Detail:   "symbol participates in an interface implementation",
			})
		}
	}

	callerEdges, err := db.GetEdgesForSymbol(live.ID, store.Incoming, []store.EdgeKind{store.EdgeCalls}, 50)
	if err == nil {
		if crossLang := crossLanguageCaller(db, live, callerEdges); crossLang != "" {
			sym.Risks = append(sym.Risks, Risk{
				Factor:   RiskCrossLanguageCaller,
				Severity: riskSeverity[RiskCrossLanguageCaller],
				Detail:   "called from " + crossLang,
			})
		}
	}

	testLayer, err := impact.TestLayer{}.Run(ctx, db, live, impact.Config{})
	if err == nil && len(testLayer.Items) == 0 {
		sym.Risks = append(sym.Risks, Risk{
			Factor:   RiskNoTestCoverage,
			Severity: riskSeverity[RiskNoTestCoverage],
			Detail:   "no test reaches this symbol directly or indirectly",
		})
	}

	return nil
}

// classifySignatureChange promotes a modified symbol to signature_changed
// when its declaration text actually differs. sym.OldSignature/NewSignature
// are normally populated by symbolmap.go straight from the diff's added
// lines against the still-pre-change live row; when that extraction comes
// up empty (e.g. the diff has already been reindexed, so the live row is
// itself the post-change state), fall back to the retired predecessor row
// matched by qualname, since a real signature edit changes stable_id.
func classifySignatureChange(db *store.DB, sym *ChangedSymbol, live *store.Symbol) {
	if sym.OldSignature != "" && sym.NewSignature != "" && sym.OldSignature != sym.NewSignature {
		sym.ChangeType = ChangeSignatureChanged
		return
	}
	prev, err := db.GetSymbolPredecessorByQualName(sym.QualName, live.FirstSeenVersion)
	if err != nil || prev == nil {
		return
	}
	sym.OldSignature = prev.Signature
	if prev.Signature != "" && sym.NewSignature != "" && prev.Signature != sym.NewSignature {
		sym.ChangeType = ChangeSignatureChanged
	}
}

func crossLanguageCaller(db *store.DB, sym *store.Symbol, callerEdges []store.Edge) string {
	selfPath, err := db.FilePathOf(sym.FileID)
	if err != nil {
		return ""
	}
	selfFile, err := db.GetFileByPath(selfPath)
	if err != nil || selfFile == nil {
		return ""
	}
	for _, e := range callerEdges {
		if e.SourceSymbolID == nil {
			continue
		}
		caller, err := db.GetSymbolByID(*e.SourceSymbolID)
		if err != nil || caller == nil {
			continue
		}
		callerPath, _ := db.FilePathOf(caller.FileID)
		callerFile, err := db.GetFileByPath(callerPath)
		if err != nil || callerFile == nil {
			continue
		}
		if callerFile.Language != "" && callerFile.Language != selfFile.Language {
			return callerFile.Language + " caller " + caller.QualName
		}
	}
	return ""
}

// AttachMissingCoChangePartners flags, once per file present in the diff,
// any high-confidence co-change partner that did not also show up in the
// diff — a signal the change is incomplete (spec §4.H "high-confidence
// co-change partner absent from the diff").
func AttachMissingCoChangePartners(db *store.DB, symbols []ChangedSymbol, diffFiles map[string]bool) {
	checked := map[string]bool{}
	for i := range symbols {
		sym := &symbols[i]
		if checked[sym.File] {
			continue
		}
		checked[sym.File] = true

		partners, err := db.GetCoChangePartners(sym.File, 5)
		if err != nil {
			continue
		}
		for _, p := range partners {
			if p.Confidence < coChangeConfidenceThreshold {
				continue
			}
			partner := p.FileA
			if partner == sym.File {
				partner = p.FileB
			}
			if partner == "" || partner == sym.File || diffFiles[partner] {
				continue
			}
			sym.Risks = append(sym.Risks, Risk{
				Factor:   RiskMissingCoChangePartner,
				Severity: riskSeverity[RiskMissingCoChangePartner],
				Detail:   fmt.Sprintf("historically changes with %s (confidence %.2f)", partner, p.Confidence),
			})
		}
	}
}
