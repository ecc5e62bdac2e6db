package store

import (
	"database/sql"
	"time"
)

// FetchRun records one call to the air quality API for auditing.
type FetchRun struct {
	ID                int64
	StartedAt         time.Time
	FinishedAt        sql.NullTime
	Endpoint          string // "/api/avg_aqi", "/api/states", etc.
	Method            string
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	DurationMS        int64
	Success           bool
	ErrorClass        sql.NullString // "validation", "session_expired", "server", "network"
	ErrorMessage      sql.NullString
}

// InsertFetchRun stores a completed run and returns its ID.
func (s *Store) InsertFetchRun(run *FetchRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO fetch_runs (started_at, finished_at, endpoint, method, http_status,
			response_size_bytes, duration_ms, success, error_class, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.StartedAt, run.FinishedAt, run.Endpoint, run.Method, run.HTTPStatus,
		run.ResponseSizeBytes, run.DurationMS, run.Success, run.ErrorClass, run.ErrorMessage)
	if err != nil {
		return 0, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return run.ID, nil
}

// FetchHealthSummary is a per-day, per-endpoint rollup of fetch runs.
type FetchHealthSummary struct {
	Date          string
	Endpoint      string
	TotalRuns     int
	SuccessRuns   int
	FailedRuns    int
	AvgDurationMS float64
}

// GetFetchHealth returns fetch health summaries for the last N days.
func (s *Store) GetFetchHealth(days int) ([]FetchHealthSummary, error) {
	rows, err := s.db.Query(`
		SELECT
			DATE(SUBSTR(started_at, 1, 19)) as date,
			endpoint,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as success_runs,
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END) as failed_runs,
			COALESCE(AVG(duration_ms), 0) as avg_duration
		FROM fetch_runs
		WHERE SUBSTR(started_at, 1, 19) > datetime('now', '-' || ? || ' days')
		GROUP BY date, endpoint
		ORDER BY date DESC, endpoint
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FetchHealthSummary
	for rows.Next() {
		var h FetchHealthSummary
		if err := rows.Scan(&h.Date, &h.Endpoint, &h.TotalRuns, &h.SuccessRuns,
			&h.FailedRuns, &h.AvgDurationMS); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// GetRecentFetchErrors returns recent failed fetch runs, newest first.
func (s *Store) GetRecentFetchErrors(limit int) ([]FetchRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, endpoint, method, http_status,
			   response_size_bytes, duration_ms, success, error_class, error_message
		FROM fetch_runs
		WHERE success = FALSE
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FetchRun
	for rows.Next() {
		var r FetchRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Endpoint, &r.Method,
			&r.HTTPStatus, &r.ResponseSizeBytes, &r.DurationMS, &r.Success,
			&r.ErrorClass, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
