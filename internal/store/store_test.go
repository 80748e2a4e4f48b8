package store

import (
	"database/sql"
	"testing"

	"cgraph/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir, 4, logging.New(logging.Config{Level: logging.Error}, nil))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenInitializesSchema(t *testing.T) {
	db := openTestDB(t)
	v, err := db.CurrentGraphVersion()
	if err != nil {
		t.Fatalf("CurrentGraphVersion failed: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected fresh graph version 0, got %d", v)
	}
}

func TestFileUpsertAndSymbolLifecycle(t *testing.T) {
	db := openTestDB(t)

	var fileID int64
	err := db.WithTx(func(tx *sql.Tx) error {
		id, err := UpsertFileTx(tx, "a.go", "go", "digest1", 100, 1)
		if err != nil {
			return err
		}
		fileID = id
		sym := &Symbol{StableID: "s1", FileID: id, Kind: KindFunction, Name: "foo", QualName: "a.foo", StartLine: 10, EndLine: 12}
		_, err = InsertSymbolTx(tx, sym, 1)
		return err
	})
	if err != nil {
		t.Fatalf("initial write failed: %v", err)
	}

	syms, err := db.GetLiveSymbolsForFile(fileID)
	if err != nil {
		t.Fatalf("GetLiveSymbolsForFile failed: %v", err)
	}
	if len(syms) != 1 || syms[0].StableID != "s1" {
		t.Fatalf("expected one live symbol s1, got %+v", syms)
	}

	// Reindex: same stable_id, moved lines -> stable_id must not change,
	// and the write is an UPDATE not an INSERT/DELETE (Testable Property 1 & 2).
	err = db.WithTx(func(tx *sql.Tx) error {
		return UpdateSymbolTx(tx, syms[0].ID, &Symbol{Signature: "", StartLine: 15, EndLine: 17}, 2)
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	updated, err := db.GetSymbolByID(syms[0].ID)
	if err != nil {
		t.Fatalf("GetSymbolByID failed: %v", err)
	}
	if updated.StableID != "s1" {
		t.Fatalf("stable_id changed across an update: %q", updated.StableID)
	}
	if updated.StartLine != 15 {
		t.Fatalf("expected start_line updated to 15, got %d", updated.StartLine)
	}
}

func TestGetSymbolPredecessorByQualNameFindsRetiredRow(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTx(func(tx *sql.Tx) error {
		fileID, err := UpsertFileTx(tx, "billing.go", "go", "d1", 1, 1)
		if err != nil {
			return err
		}
		id, err := InsertSymbolTx(tx, &Symbol{
			StableID: "old-sig", FileID: fileID, Kind: KindFunction, Name: "Charge",
			QualName: "billing.Charge", Signature: "func Charge(amount int64)",
		}, 1)
		if err != nil {
			return err
		}
		return MarkSymbolDeletedTx(tx, id, 2)
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	err = db.WithTx(func(tx *sql.Tx) error {
		fileID, err := db.GetFileByPath("billing.go")
		if err != nil {
			return err
		}
		_, err = InsertSymbolTx(tx, &Symbol{
			StableID: "new-sig", FileID: fileID.ID, Kind: KindFunction, Name: "Charge",
			QualName: "billing.Charge", Signature: "func Charge(amount int64, currency string)",
		}, 2)
		return err
	})
	if err != nil {
		t.Fatalf("reindex failed: %v", err)
	}

	live, err := db.GetSymbolByQualName("billing.Charge")
	if err != nil || live == nil {
		t.Fatalf("GetSymbolByQualName failed: %v", err)
	}
	if live.StableID != "new-sig" {
		t.Fatalf("expected the live row to be the new stable_id, got %q", live.StableID)
	}

	prev, err := db.GetSymbolPredecessorByQualName("billing.Charge", live.FirstSeenVersion)
	if err != nil {
		t.Fatalf("GetSymbolPredecessorByQualName failed: %v", err)
	}
	if prev == nil || prev.StableID != "old-sig" {
		t.Fatalf("expected to recover the retired predecessor row, got %+v", prev)
	}
	if prev.Signature != "func Charge(amount int64)" {
		t.Fatalf("expected the predecessor's original signature, got %q", prev.Signature)
	}
}

func TestEdgeResolutionExactMatch(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTx(func(tx *sql.Tx) error {
		fileID, err := UpsertFileTx(tx, "b.go", "go", "d", 1, 1)
		if err != nil {
			return err
		}
		_, err = InsertSymbolTx(tx, &Symbol{StableID: "s2", FileID: fileID, Kind: KindFunction, Name: "bar", QualName: "pkg.bar"}, 1)
		if err != nil {
			return err
		}
		edge := &Edge{Kind: EdgeCalls, SourceFileID: &fileID, TargetQualName: "pkg.bar", Confidence: 1.0, GraphVersion: 1}
		edgeID, err := InsertEdgeTx(tx, edge)
		if err != nil {
			return err
		}
		return ResolveUnresolvedEdgesTx(tx, []int64{edgeID})
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	edges, err := db.GetEdgesForSymbol(1, Incoming, nil, 10)
	if err != nil {
		t.Fatalf("GetEdgesForSymbol failed: %v", err)
	}
	if len(edges) != 1 || edges[0].TargetSymbolID == nil {
		t.Fatalf("expected edge resolved to target symbol, got %+v", edges)
	}
}

func TestCacheCompressionRoundtrip(t *testing.T) {
	db := openTestDB(t)
	big := make([]byte, 5000)
	for i := range big {
		big[i] = byte('a' + i%26)
	}
	if err := db.SetQueryCache("k1", big, "head1", "state1", 300); err != nil {
		t.Fatalf("SetQueryCache failed: %v", err)
	}
	got, found, err := db.GetQueryCache("k1", "head1")
	if err != nil || !found {
		t.Fatalf("GetQueryCache failed: found=%v err=%v", found, err)
	}
	if string(got) != string(big) {
		t.Fatalf("roundtripped value mismatch")
	}
}

func TestInvalidateByStateID(t *testing.T) {
	db := openTestDB(t)
	if err := db.SetViewCache("v1", []byte("hello"), "stateA", 3600); err != nil {
		t.Fatalf("SetViewCache failed: %v", err)
	}
	if err := db.InvalidateByStateID("stateA"); err != nil {
		t.Fatalf("InvalidateByStateID failed: %v", err)
	}
	_, found, err := db.GetViewCache("v1", "stateA")
	if err != nil {
		t.Fatalf("GetViewCache failed: %v", err)
	}
	if found {
		t.Fatalf("expected cache entry invalidated by state id")
	}
}
