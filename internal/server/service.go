package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/export"
	"github.com/joseph-ayodele/docstruct/internal/pipeline"
	"github.com/joseph-ayodele/docstruct/internal/repository"
)

// Service is the HTTP ingress: it accepts a batch of documents for one
// session, runs the pipeline synchronously, persists the terminal state,
// and serves the derived artifacts.
type Service struct {
	orch           *pipeline.Orchestrator
	store          repository.SessionStore
	exporter       *export.Service
	logger         *zap.Logger
	maxUploadBytes int64
}

func NewService(
	orch *pipeline.Orchestrator,
	store repository.SessionStore,
	exporter *export.Service,
	cfg common.ServerConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orch:           orch,
		store:          store,
		exporter:       exporter,
		logger:         logger,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Router builds the chi router with all session endpoints mounted.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/", s.handleListSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Get("/tables", s.handleGetTables)
			r.Get("/tables.xlsx", s.handleGetXLSX)
			r.Get("/tables/{table}.csv", s.handleGetCSV)
		})
	})
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
