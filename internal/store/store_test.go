package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/aqidash/internal/gateway"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestMigrationVersion(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}

	// Re-running is a no-op.
	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestRecordCall_Success(t *testing.T) {
	store := setupTestStore(t)

	body := []byte(`{"data":{"Mean":61.2},"status":"success"}`)
	store.RecordCall(gateway.Call{
		Endpoint:   "/api/avg_aqi",
		Method:     "POST",
		StartedAt:  time.Now().Add(-time.Second),
		Duration:   120 * time.Millisecond,
		HTTPStatus: 200,
		Body:       body,
	})

	health, err := store.GetFetchHealth(1)
	if err != nil {
		t.Fatalf("GetFetchHealth: %v", err)
	}
	if len(health) != 1 {
		t.Fatalf("len(health) = %d, want 1", len(health))
	}
	h := health[0]
	if h.Endpoint != "/api/avg_aqi" || h.TotalRuns != 1 || h.SuccessRuns != 1 || h.FailedRuns != 0 {
		t.Errorf("health = %+v", h)
	}
	if h.AvgDurationMS != 120 {
		t.Errorf("AvgDurationMS = %v, want 120", h.AvgDurationMS)
	}

	p, err := store.GetRawPayload("/api/avg_aqi", PayloadHash(body))
	if err != nil {
		t.Fatalf("GetRawPayload: %v", err)
	}
	if p == nil {
		t.Fatal("payload not archived")
	}
	if !p.FetchRunID.Valid || p.Hits != 1 {
		t.Errorf("payload = %+v", p)
	}

	got, err := p.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("payload = %s, want %s", got, body)
	}
}

func TestRecordCall_Failure(t *testing.T) {
	store := setupTestStore(t)

	store.RecordCall(gateway.Call{
		Endpoint:   "/api/map_aqi",
		Method:     "POST",
		StartedAt:  time.Now(),
		HTTPStatus: 419,
		Body:       []byte(`{}`),
		Err:        &gateway.SessionExpiredError{},
	})
	store.RecordCall(gateway.Call{
		Endpoint:  "/api/time_pm",
		Method:    "POST",
		StartedAt: time.Now().Add(time.Second),
		Err:       &gateway.NetworkError{Err: errors.New("connection refused")},
	})

	errs, err := store.GetRecentFetchErrors(10)
	if err != nil {
		t.Fatalf("GetRecentFetchErrors: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("len(errors) = %d, want 2", len(errs))
	}
	if errs[0].Endpoint != "/api/time_pm" || errs[0].ErrorClass.String != "network" || errs[0].HTTPStatus.Valid {
		t.Errorf("errors[0] = %+v", errs[0])
	}
	if errs[1].ErrorClass.String != "session_expired" || errs[1].HTTPStatus.Int64 != 419 {
		t.Errorf("errors[1] = %+v", errs[1])
	}

	stats, err := store.GetRawPayloadStats()
	if err != nil {
		t.Fatalf("GetRawPayloadStats: %v", err)
	}
	if stats.Distinct != 0 {
		t.Errorf("failed calls archived %d payloads", stats.Distinct)
	}
}

func TestStoreRawPayload_DedupePerEndpoint(t *testing.T) {
	store := setupTestStore(t)
	body := []byte(`{"data":[],"status":"success"}`)

	tests := []struct {
		endpoint string
		wantNew  bool
	}{
		{"/api/map_aqi", true},
		{"/api/map_aqi", false},
		{"/api/time_pm", true},
		{"/api/map_aqi", false},
	}
	for i, tt := range tests {
		fresh, err := store.StoreRawPayload(nil, tt.endpoint, body)
		if err != nil {
			t.Fatalf("store %d: %v", i, err)
		}
		if fresh != tt.wantNew {
			t.Errorf("store %d (%s): new = %v, want %v", i, tt.endpoint, fresh, tt.wantNew)
		}
	}

	stats, err := store.GetRawPayloadStats()
	if err != nil {
		t.Fatalf("GetRawPayloadStats: %v", err)
	}
	if stats.Distinct != 2 {
		t.Errorf("Distinct = %d, want 2", stats.Distinct)
	}
	if a := stats.ByEndpoint["/api/map_aqi"]; a.Distinct != 1 || a.Hits != 3 {
		t.Errorf("map_aqi archive = %+v, want 1 distinct, 3 hits", a)
	}
}

func TestLatestRawPayload(t *testing.T) {
	store := setupTestStore(t)

	if p, err := store.LatestRawPayload("/api/states"); err != nil || p != nil {
		t.Fatalf("empty archive: got %v, %v", p, err)
	}

	for _, b := range []string{`["Alabama"]`, `["Alabama","Texas"]`} {
		if _, err := store.StoreRawPayload(nil, "/api/states", []byte(b)); err != nil {
			t.Fatalf("StoreRawPayload: %v", err)
		}
	}

	p, err := store.LatestRawPayload("/api/states")
	if err != nil {
		t.Fatalf("LatestRawPayload: %v", err)
	}
	body, err := p.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if string(body) != `["Alabama","Texas"]` {
		t.Errorf("latest = %s", body)
	}
}

func TestCleanupOldRawPayloads(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.StoreRawPayload(nil, "/api/states", []byte("fresh")); err != nil {
		t.Fatalf("StoreRawPayload: %v", err)
	}
	old := time.Now().UTC().AddDate(0, 0, -40).Format(timeLayout)
	if _, err := store.db.Exec(`
		INSERT INTO raw_payloads (endpoint, payload_hash, payload_compressed, first_seen_at, last_seen_at)
		VALUES ('/api/states', 'old', x'00', ?, ?)
	`, old, old); err != nil {
		t.Fatalf("insert old payload: %v", err)
	}

	n, err := store.CleanupOldRawPayloads(30)
	if err != nil {
		t.Fatalf("CleanupOldRawPayloads: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
}

func TestRecordExport(t *testing.T) {
	store := setupTestStore(t)

	older := ExportRecord{
		ID:         "a1",
		FileName:   "aqi-dashboard-data-6-1-2024.xlsx",
		Path:       "/tmp/aqi-dashboard-data-6-1-2024.xlsx",
		SheetCount: 3,
		SizeBytes:  2048,
		CreatedAt:  time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	newer := ExportRecord{
		ID:           "b2",
		FileName:     "aqi-dashboard-data-6-2-2024.xlsx",
		CreatedAt:    time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC),
		ErrorMessage: sql.NullString{String: "ftp stor: refused", Valid: true},
	}
	for _, r := range []ExportRecord{older, newer} {
		if err := store.RecordExport(r); err != nil {
			t.Fatalf("RecordExport: %v", err)
		}
	}

	got, err := store.RecentExports(10)
	if err != nil {
		t.Fatalf("RecentExports: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "b2" || got[0].ErrorMessage.String != "ftp stor: refused" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].SheetCount != 3 || got[1].SizeBytes != 2048 || !got[1].CreatedAt.Equal(older.CreatedAt) {
		t.Errorf("got[1] = %+v", got[1])
	}
}
