package store

import (
	"database/sql"
	"time"

	"github.com/klauspost/compress/zstd"

	"cgraph/internal/errors"
)

// CacheTier names one of the three cache tables (spec §9.3-style
// invalidation, grounded on the teacher's internal/storage/cache.go).
type CacheTier string

const (
	QueryCache    CacheTier = "query"
	ViewCache     CacheTier = "view"
	NegativeCache CacheTier = "negative"
)

// compressThreshold is the size at or above which a cached value is
// zstd-compressed before being persisted. klauspost/compress/zstd is a
// teacher go.mod dependency that the teacher's own code never imports
// directly; cgraph wires it here for the query and view cache tiers.
const compressThreshold = 2048

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
}

func encodeValue(v []byte) ([]byte, bool) {
	if len(v) < compressThreshold {
		return v, false
	}
	return encoder.EncodeAll(v, nil), true
}

func decodeValue(v []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return v, nil
	}
	out, err := decoder.DecodeAll(v, nil)
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "failed to decompress cache value", err)
	}
	return out, nil
}

// GetQueryCache retrieves a cached query result keyed by headCommit.
func (db *DB) GetQueryCache(key, headCommit string) ([]byte, bool, error) {
	var blob []byte
	var compressed bool
	var expiresAt string
	err := db.QueryRow(
		`SELECT value_blob, compressed, expires_at FROM query_cache WHERE key = ? AND head_commit = ?`,
		key, headCommit).Scan(&blob, &compressed, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.Transient, "query cache lookup failed", err)
	}
	if expired(expiresAt) {
		db.Exec(`DELETE FROM query_cache WHERE key = ?`, key)
		return nil, false, nil
	}
	v, err := decodeValue(blob, compressed)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// SetQueryCache stores a query result with a TTL.
func (db *DB) SetQueryCache(key string, value []byte, headCommit, stateID string, ttlSeconds int) error {
	blob, compressed := encodeValue(value)
	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(ttlSeconds) * time.Second).Format(time.RFC3339)
	_, err := db.Exec(
		`INSERT OR REPLACE INTO query_cache (key, value_blob, compressed, head_commit, state_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key, blob, compressed, headCommit, stateID, expiresAt, now.Format(time.RFC3339))
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to set query cache", err)
	}
	return nil
}

// GetViewCache retrieves a cached view result keyed by a graph state id.
func (db *DB) GetViewCache(key, stateID string) ([]byte, bool, error) {
	var blob []byte
	var compressed bool
	var expiresAt string
	err := db.QueryRow(
		`SELECT value_blob, compressed, expires_at FROM view_cache WHERE key = ? AND state_id = ?`,
		key, stateID).Scan(&blob, &compressed, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.Transient, "view cache lookup failed", err)
	}
	if expired(expiresAt) {
		db.Exec(`DELETE FROM view_cache WHERE key = ?`, key)
		return nil, false, nil
	}
	v, err := decodeValue(blob, compressed)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// SetViewCache stores a view result with a TTL.
func (db *DB) SetViewCache(key string, value []byte, stateID string, ttlSeconds int) error {
	blob, compressed := encodeValue(value)
	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(ttlSeconds) * time.Second).Format(time.RFC3339)
	_, err := db.Exec(
		`INSERT OR REPLACE INTO view_cache (key, value_blob, compressed, state_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key, blob, compressed, stateID, expiresAt, now.Format(time.RFC3339))
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to set view cache", err)
	}
	return nil
}

// GetNegativeCache retrieves a previously cached error for key.
func (db *DB) GetNegativeCache(key, stateID string) (errorType, errorMessage string, found bool, err error) {
	var expiresAt string
	row := db.QueryRow(
		`SELECT error_type, error_message, expires_at FROM negative_cache WHERE key = ? AND state_id = ?`,
		key, stateID)
	scanErr := row.Scan(&errorType, &errorMessage, &expiresAt)
	if scanErr == sql.ErrNoRows {
		return "", "", false, nil
	}
	if scanErr != nil {
		return "", "", false, errors.Wrap(errors.Transient, "negative cache lookup failed", scanErr)
	}
	if expired(expiresAt) {
		db.Exec(`DELETE FROM negative_cache WHERE key = ?`, key)
		return "", "", false, nil
	}
	return errorType, errorMessage, true, nil
}

// SetNegativeCache remembers that key previously failed, to short-circuit
// repeated identical failing queries within the TTL.
func (db *DB) SetNegativeCache(key, errorType, errorMessage, stateID string, ttlSeconds int) error {
	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(ttlSeconds) * time.Second).Format(time.RFC3339)
	_, err := db.Exec(
		`INSERT OR REPLACE INTO negative_cache (key, error_type, error_message, state_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key, errorType, errorMessage, stateID, expiresAt, now.Format(time.RFC3339))
	if err != nil {
		return errors.Wrap(errors.Transient, "failed to set negative cache", err)
	}
	return nil
}

// InvalidateByStateID clears every cache tier entry stamped with stateID.
func (db *DB) InvalidateByStateID(stateID string) error {
	for _, table := range []string{"query_cache", "view_cache", "negative_cache"} {
		if _, err := db.Exec(`DELETE FROM `+table+` WHERE state_id = ?`, stateID); err != nil {
			return errors.Wrap(errors.Transient, "failed to invalidate cache tier "+table, err)
		}
	}
	return nil
}

// InvalidateAll clears every row across every cache tier. Committing a new
// graph version does not call it.
func (db *DB) InvalidateAll() error {
	for _, table := range []string{"query_cache", "view_cache", "negative_cache"} {
		if _, err := db.Exec(`DELETE FROM ` + table); err != nil {
			return errors.Wrap(errors.Transient, "failed to clear cache tier "+table, err)
		}
	}
	return nil
}

func expired(expiresAt string) bool {
	t, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return true
	}
	return time.Now().After(t)
}
