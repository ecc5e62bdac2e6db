package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// timeLayout is how archive timestamps are written, so that range filters
// compare as plain strings.
const timeLayout = "2006-01-02 15:04:05"

// RawPayload is one distinct response body seen from an endpoint.
type RawPayload struct {
	ID          int64
	FetchRunID  sql.NullInt64
	Endpoint    string
	Hash        string
	Compressed  []byte
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	Hits        int
}

// Body decompresses the archived response.
func (p *RawPayload) Body() ([]byte, error) {
	return gunzip(p.Compressed)
}

// PayloadHash returns the dedupe key for a body.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func gunzip(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// StoreRawPayload archives a response body for an endpoint. A body already
// archived for that endpoint only has its hit count and last-seen time
// bumped. It reports whether the body was new.
func (s *Store) StoreRawPayload(runID *int64, endpoint string, payload []byte) (bool, error) {
	compressed, err := gzipBytes(payload)
	if err != nil {
		return false, err
	}

	var run sql.NullInt64
	if runID != nil {
		run = sql.NullInt64{Int64: *runID, Valid: true}
	}
	now := time.Now().UTC().Format(timeLayout)
	hash := PayloadHash(payload)

	res, err := s.db.Exec(`
		UPDATE raw_payloads SET last_seen_at = ?, hits = hits + 1
		WHERE endpoint = ? AND payload_hash = ?
	`, now, endpoint, hash)
	if err != nil {
		return false, fmt.Errorf("touch raw payload: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	if _, err := s.db.Exec(`
		INSERT INTO raw_payloads
		(fetch_run_id, endpoint, payload_hash, payload_compressed, first_seen_at, last_seen_at, hits)
		VALUES (?, ?, ?, ?, ?, ?, 1)
	`, run, endpoint, hash, compressed, now, now); err != nil {
		return false, fmt.Errorf("insert raw payload: %w", err)
	}
	return true, nil
}

const payloadColumns = `id, fetch_run_id, endpoint, payload_hash, payload_compressed, first_seen_at, last_seen_at, hits`

func scanPayload(row *sql.Row) (*RawPayload, error) {
	var p RawPayload
	var first, last string
	err := row.Scan(&p.ID, &p.FetchRunID, &p.Endpoint, &p.Hash, &p.Compressed, &first, &last, &p.Hits)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.FirstSeenAt, _ = time.Parse(timeLayout, first)
	p.LastSeenAt, _ = time.Parse(timeLayout, last)
	return &p, nil
}

// GetRawPayload returns the archived body for endpoint with the given hash,
// or nil if it was never seen.
func (s *Store) GetRawPayload(endpoint, hash string) (*RawPayload, error) {
	return scanPayload(s.db.QueryRow(`SELECT `+payloadColumns+` FROM raw_payloads
		WHERE endpoint = ? AND payload_hash = ?`, endpoint, hash))
}

// LatestRawPayload returns the most recently seen body for endpoint, or nil.
func (s *Store) LatestRawPayload(endpoint string) (*RawPayload, error) {
	return scanPayload(s.db.QueryRow(`SELECT `+payloadColumns+` FROM raw_payloads
		WHERE endpoint = ? ORDER BY last_seen_at DESC, id DESC LIMIT 1`, endpoint))
}

// EndpointArchive summarises the archive for one endpoint.
type EndpointArchive struct {
	Distinct  int   `json:"distinct"`
	Hits      int   `json:"hits"`
	SizeBytes int64 `json:"size_bytes"`
}

// RawPayloadStats summarises the whole archive.
type RawPayloadStats struct {
	Distinct   int                        `json:"distinct"`
	SizeBytes  int64                      `json:"size_bytes"`
	ByEndpoint map[string]EndpointArchive `json:"by_endpoint"`
}

func (s *Store) GetRawPayloadStats() (*RawPayloadStats, error) {
	rows, err := s.db.Query(`
		SELECT endpoint, COUNT(*), SUM(hits), SUM(LENGTH(payload_compressed))
		FROM raw_payloads
		GROUP BY endpoint
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &RawPayloadStats{ByEndpoint: make(map[string]EndpointArchive)}
	for rows.Next() {
		var endpoint string
		var a EndpointArchive
		if err := rows.Scan(&endpoint, &a.Distinct, &a.Hits, &a.SizeBytes); err != nil {
			return nil, err
		}
		stats.ByEndpoint[endpoint] = a
		stats.Distinct += a.Distinct
		stats.SizeBytes += a.SizeBytes
	}
	return stats, rows.Err()
}

// CleanupOldRawPayloads drops bodies not seen within retentionDays and
// returns how many were removed.
func (s *Store) CleanupOldRawPayloads(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(timeLayout)
	res, err := s.db.Exec(`DELETE FROM raw_payloads WHERE last_seen_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
