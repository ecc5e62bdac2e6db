package store

import (
	"database/sql"
	"time"
)

// ExportRecord is one workbook written by the exporter.
type ExportRecord struct {
	ID           string
	FileName     string
	Path         string
	SheetCount   int
	SizeBytes    int64
	CreatedAt    time.Time
	Published    bool
	ErrorMessage sql.NullString
}

// RecordExport stores an export, successful or not.
func (s *Store) RecordExport(rec ExportRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO exports (id, file_name, path, sheet_count, size_bytes, created_at, published, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.FileName, rec.Path, rec.SheetCount, rec.SizeBytes, rec.CreatedAt.UTC(),
		rec.Published, rec.ErrorMessage)
	return err
}

// RecentExports returns the latest exports, newest first.
func (s *Store) RecentExports(limit int) ([]ExportRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, file_name, path, sheet_count, size_bytes, created_at, published, error_message
		FROM exports
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ExportRecord
	for rows.Next() {
		var r ExportRecord
		if err := rows.Scan(&r.ID, &r.FileName, &r.Path, &r.SheetCount, &r.SizeBytes,
			&r.CreatedAt, &r.Published, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
