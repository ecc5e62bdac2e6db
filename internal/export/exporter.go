package export

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lox/aqidash/internal/dashboard"
	"github.com/lox/aqidash/internal/metrics"
	"github.com/lox/aqidash/internal/store"
)

// DefaultBaseName is the file name prefix used when none is configured.
const DefaultBaseName = "aqi-dashboard-data"

// FileName returns "{base}-{M-D-YYYY}.xlsx" for the given day.
func FileName(base string, now time.Time) string {
	if base == "" {
		base = DefaultBaseName
	}
	return fmt.Sprintf("%s-%s.xlsx", base, now.Format("1-2-2006"))
}

// Recorder keeps a history of exports.
type Recorder interface {
	RecordExport(store.ExportRecord) error
}

// Publisher ships a finished workbook somewhere else.
type Publisher interface {
	Publish(ctx context.Context, name string, data []byte) error
}

// Exporter builds workbooks from dashboard snapshots and writes them out.
type Exporter struct {
	Dir       string
	BaseName  string
	Recorder  Recorder
	Publisher Publisher
}

// Result describes a written export.
type Result struct {
	ID        string
	FileName  string
	Path      string
	Sheets    int
	Size      int64
	Published bool
}

// Build assembles and renders a snapshot, returning the file name and bytes.
func (e *Exporter) Build(snap dashboard.Snapshot, now time.Time) (string, []byte, int, error) {
	wb, err := Assemble(snap, now)
	if err != nil {
		return "", nil, 0, err
	}
	data, err := Render(wb)
	if err != nil {
		return "", nil, 0, err
	}
	return FileName(e.BaseName, now), data, len(wb.Sheets), nil
}

// Export writes the snapshot's workbook into Dir. The file appears under its
// final name only once fully written. Publishing failures are returned but
// leave the local file in place.
func (e *Exporter) Export(ctx context.Context, snap dashboard.Snapshot, now time.Time) (Result, error) {
	res := Result{ID: uuid.NewString()}

	name, data, sheets, err := e.Build(snap, now)
	res.FileName, res.Sheets = name, sheets
	if err == nil {
		res.Path, err = writeAtomic(e.dir(), name, data)
		res.Size = int64(len(data))
	}
	if err == nil && e.Publisher != nil {
		if err = e.Publisher.Publish(ctx, name, data); err == nil {
			res.Published = true
		}
	}

	e.record(res, now, err)
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		log.Printf("export: %s failed: %v", name, err)
		return res, err
	}
	metrics.ExportsTotal.WithLabelValues("ok").Inc()
	log.Printf("export: wrote %s (%d sheets, %d bytes)", res.Path, res.Sheets, res.Size)
	return res, nil
}

func (e *Exporter) dir() string {
	if e.Dir == "" {
		return "."
	}
	return e.Dir
}

func (e *Exporter) record(res Result, now time.Time, err error) {
	if e.Recorder == nil {
		return
	}
	rec := store.ExportRecord{
		ID:         res.ID,
		FileName:   res.FileName,
		Path:       res.Path,
		SheetCount: res.Sheets,
		SizeBytes:  res.Size,
		CreatedAt:  now,
		Published:  res.Published,
	}
	if err != nil {
		rec.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	}
	if rerr := e.Recorder.RecordExport(rec); rerr != nil {
		log.Printf("export: record %s: %v", res.FileName, rerr)
	}
}

// writeAtomic writes data to a temp file in dir and renames it into place.
func writeAtomic(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	final := filepath.Join(dir, name)
	if err := os.Rename(tmpName, final); err != nil {
		return "", fmt.Errorf("rename into place: %w", err)
	}
	return final, nil
}
