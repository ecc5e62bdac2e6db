package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lox/aqidash/internal/filters"
)

// FilterRequest changes the filter selection and applies it.
type FilterRequest struct {
	States []string `json:"states" validate:"dive,required"`
	Preset string   `json:"preset" validate:"omitempty,oneof=7d 30d 3m 6m 1y all custom"`
	Start  string   `json:"start" validate:"required_if=Preset custom,omitempty,datetime=2006-01-02"`
	End    string   `json:"end" validate:"required_if=Preset custom,omitempty,datetime=2006-01-02"`
}

// PredictRequest refetches the forecast slots with a new horizon.
type PredictRequest struct {
	Years int `json:"years" validate:"required,oneof=1 3 5"`
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.buildView(r.URL.Query().Get("alerts") == "all"))
}

func (s *Server) handleAPIFilters(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req = FilterRequest{
			States: r.PostForm["states"],
			Preset: r.PostForm.Get("preset"),
			Start:  r.PostForm.Get("start"),
			End:    r.PostForm.Get("end"),
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := s.validate.Struct(req); err != nil {
		if isForm(r) {
			http.Error(w, validationMessage(err), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
		return
	}

	if err := s.applyFilterRequest(req); err != nil {
		if isForm(r) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// The round outlives the request.
	round := s.dash.Apply(context.WithoutCancel(r.Context()))
	if isForm(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"round": round.ID, "keys": round.Keys})
}

func (s *Server) applyFilterRequest(req FilterRequest) error {
	preset := filters.Preset(req.Preset)
	if preset == "" && (req.Start != "" || req.End != "") {
		preset = filters.PresetCustom
	}

	switch preset {
	case "":
	case filters.PresetCustom:
		start, err := time.Parse("2006-01-02", req.Start)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		end, err := time.Parse("2006-01-02", req.End)
		if err != nil {
			return fmt.Errorf("end: %w", err)
		}
		if err := s.dash.Filters.SetDateRange(filters.DateRange{Start: start, End: end}); err != nil {
			return err
		}
	default:
		if err := s.dash.Filters.ApplyPreset(preset, s.now()); err != nil {
			return err
		}
	}

	s.dash.Filters.SelectStates(req.States)
	return nil
}

func (s *Server) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Years, _ = strconv.Atoi(r.PostForm.Get("years"))
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := s.validate.Struct(req); err != nil {
		if isForm(r) {
			http.Error(w, validationMessage(err), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
		return
	}

	round, err := s.dash.Predict(context.WithoutCancel(r.Context()), req.Years)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if isForm(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"round": round.ID, "keys": round.Keys})
}

func (s *Server) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	name, data, _, err := s.exporter.Build(s.dash.ExportSnapshot(now), now)
	if err != nil {
		log.Printf("export: download failed: %v", err)
		http.Error(w, "Failed to generate Excel file. Please try again.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	res, err := s.exporter.Export(r.Context(), s.dash.ExportSnapshot(now), now)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "export": res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AuditReport summarises what the store has recorded.
type AuditReport struct {
	FetchHealth  any `json:"fetch_health"`
	RecentErrors any `json:"recent_errors"`
	Payloads     any `json:"payloads"`
	Exports      any `json:"exports"`
}

func (s *Server) handleAPIAudit(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, AuditReport{})
		return
	}

	days := 7
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	var report AuditReport
	var err error
	if report.FetchHealth, err = s.store.GetFetchHealth(days); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if report.RecentErrors, err = s.store.GetRecentFetchErrors(20); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if report.Payloads, err = s.store.GetRawPayloadStats(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if report.Exports, err = s.store.RecentExports(20); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleAPIAuditLatest replays the last body archived for ?endpoint=.
func (s *Server) handleAPIAuditLatest(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if s.store == nil || endpoint == "" {
		http.NotFound(w, r)
		return
	}

	p, err := s.store.LatestRawPayload(endpoint)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if p == nil {
		http.NotFound(w, r)
		return
	}
	body, err := p.Body()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Payload-Hits", strconv.Itoa(p.Hits))
	w.Header().Set("Last-Modified", p.LastSeenAt.Format(http.TimeFormat))
	w.Write(body)
}
