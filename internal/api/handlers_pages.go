package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/lox/aqidash/internal/dashboard"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := s.buildView(r.URL.Query().Get("alerts") == "all")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "dashboard.html", view); err != nil {
		log.Printf("api: render dashboard: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type HealthStatus struct {
	Status        string     `json:"status"`
	Loading       bool       `json:"loading"`
	Ready         int        `json:"ready"`
	Failed        []string   `json:"failed,omitempty"`
	LastAppliedAt *time.Time `json:"last_applied_at,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	bag := s.dash.Data.Snapshot()
	health := HealthStatus{
		Status:        "ok",
		Loading:       bag.Loading(),
		LastAppliedAt: s.dash.Filters.Values().LastAppliedAt,
	}
	for _, sl := range bag.Slots() {
		switch sl.Status {
		case dashboard.StatusReady:
			health.Ready++
		case dashboard.StatusFailed:
			health.Failed = append(health.Failed, string(sl.Key)+": "+sl.Reason())
		}
	}
	if len(health.Failed) > 0 {
		health.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
