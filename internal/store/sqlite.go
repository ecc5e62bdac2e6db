package store

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/lox/aqidash/internal/gateway"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (or creates) the sqlite database at path and applies migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := New(db)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordCall stores a gateway call as a fetch run, with its body when the
// call succeeded. Errors are logged; auditing never fails a fetch.
func (s *Store) RecordCall(c gateway.Call) {
	run := &FetchRun{
		StartedAt:         c.StartedAt.UTC(),
		FinishedAt:        sql.NullTime{Time: c.StartedAt.Add(c.Duration).UTC(), Valid: true},
		Endpoint:          c.Endpoint,
		Method:            c.Method,
		DurationMS:        c.Duration.Milliseconds(),
		ResponseSizeBytes: sql.NullInt64{Int64: int64(len(c.Body)), Valid: c.Body != nil},
		Success:           c.Err == nil,
	}
	if c.HTTPStatus != 0 {
		run.HTTPStatus = sql.NullInt64{Int64: int64(c.HTTPStatus), Valid: true}
	}
	if c.Err != nil {
		run.ErrorClass = sql.NullString{String: errorClass(c.Err), Valid: true}
		run.ErrorMessage = sql.NullString{String: c.Err.Error(), Valid: true}
	}

	id, err := s.InsertFetchRun(run)
	if err != nil {
		log.Printf("store: record fetch run %s: %v", c.Endpoint, err)
		return
	}
	if c.Err != nil || len(c.Body) == 0 {
		return
	}
	if _, err := s.StoreRawPayload(&id, c.Endpoint, c.Body); err != nil {
		log.Printf("store: store payload %s: %v", c.Endpoint, err)
	}
}

func errorClass(err error) string {
	switch err.(type) {
	case *gateway.ValidationError:
		return "validation"
	case *gateway.SessionExpiredError:
		return "session_expired"
	case *gateway.NetworkError:
		return "network"
	case *gateway.ServerError:
		return "server"
	default:
		return "other"
	}
}
