package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dgallion1/papersumm/internal/config"
	"github.com/dgallion1/papersumm/internal/inference"
	"github.com/dgallion1/papersumm/internal/pipeline"
)

// Server is the HTTP API server for papersumm.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	client       *inference.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, client *inference.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		client:       client,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes wires the endpoints. StripSlashes keeps the paths reachable
// with or without a trailing slash, which the browser frontend relies on.
func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/models", s.handleListModels)
		r.Post("/extract/headers", s.handleExtractHeaders)
		r.Post("/summarizer", s.handleSummarize)
		r.Get("/stats/inference", s.handleInferenceStats)
	})

	s.router = r
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.FrontendOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.FrontendOrigins
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
