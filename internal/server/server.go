// Package server exposes the submission pipeline over HTTP with
// gorilla/mux routing.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/charityrun/runproof/internal/assets"
	"github.com/charityrun/runproof/internal/config"
	"github.com/charityrun/runproof/internal/monitoring"
	"github.com/charityrun/runproof/internal/submit"
	"github.com/charityrun/runproof/internal/utils"
)

// Server is the HTTP front of the service.
type Server struct {
	httpServer   *http.Server
	orchestrator *submit.Orchestrator
	proofs       *assets.Store
	health       http.Handler
	metrics      *monitoring.Metrics
	maxUpload    int64
	logger       utils.Logger
}

// New assembles the server and its routes.
func New(
	cfg config.ServerConfig,
	orchestrator *submit.Orchestrator,
	proofs *assets.Store,
	health http.Handler,
	metrics *monitoring.Metrics,
	metricsEnabled bool,
	logger utils.Logger,
) *Server {
	s := &Server{
		orchestrator: orchestrator,
		proofs:       proofs,
		health:       health,
		metrics:      metrics,
		maxUpload:    cfg.MaxUploadBytes,
		logger:       logger,
	}

	router := mux.NewRouter()
	router.Handle("/healthz", health).Methods(http.MethodGet)
	if metricsEnabled {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/submissions", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/scrape", s.handleScrape).Methods(http.MethodGet)

	router.PathPrefix("/proofs/").Handler(
		http.StripPrefix("/proofs/", http.FileServer(http.Dir(proofs.Dir()))))

	handler := s.recoveryMiddleware(s.loggingMiddleware(s.inFlightMiddleware(router)))

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the assembled handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
