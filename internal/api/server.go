package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/aqidash/internal/dashboard"
	"github.com/lox/aqidash/internal/export"
	"github.com/lox/aqidash/internal/store"
)

type Server struct {
	dash     *dashboard.Dashboard
	exporter *export.Exporter
	store    *store.Store
	port     string
	tmpl     *template.Template
	validate *validator.Validate
	now      func() time.Time
}

// NewServer creates the dashboard server. The store may be nil, in which
// case the audit endpoint reports no data.
func NewServer(dash *dashboard.Dashboard, exporter *export.Exporter, st *store.Store, port string) *Server {
	return &Server{
		dash:     dash,
		exporter: exporter,
		store:    st,
		port:     port,
		tmpl:     newTemplates(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/dashboard", s.handleAPIDashboard)
	mux.HandleFunc("POST /api/filters", s.handleAPIFilters)
	mux.HandleFunc("POST /api/predict", s.handleAPIPredict)
	mux.HandleFunc("POST /api/export", s.handleAPIExport)
	mux.HandleFunc("GET /api/audit", s.handleAPIAudit)
	mux.HandleFunc("GET /api/audit/latest", s.handleAPIAuditLatest)
	mux.HandleFunc("GET /export.xlsx", s.handleExportDownload)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
