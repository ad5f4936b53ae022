package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/tmplinspect/internal/combo"
	"github.com/dgallion1/tmplinspect/internal/config"
	"github.com/dgallion1/tmplinspect/internal/snapshot"
	"github.com/dgallion1/tmplinspect/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP API server for tmplinspect.
type Server struct {
	router chi.Router
	store  *snapshot.Store
	stats  *stats.Recorder
	toggle *combo.Toggle
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(store *snapshot.Store, rec *stats.Recorder, log *slog.Logger, cfg config.Config) *Server {
	toggle := combo.NewToggle(cfg.ComboKey)
	toggle.KeepEnabled = cfg.KeepEnabled

	s := &Server{
		store:  store,
		stats:  rec,
		toggle: toggle,
		log:    log,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Browser pages on the developer's app origin call the API directly.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Origins(),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/snapshots", s.handleCreateSnapshot)
		r.Get("/api/snapshots/{snapshotID}", s.handleGetSnapshot)
		r.Delete("/api/snapshots/{snapshotID}", s.handleDeleteSnapshot)
		r.Post("/api/snapshots/{snapshotID}/resolve", s.handleResolve)
		r.Get("/api/snapshots/{snapshotID}/regions", s.handleRegions)

		r.Post("/api/combo", s.handleCombo)
		r.Get("/api/toggle", s.handleGetToggle)
		r.Post("/api/toggle/opened", s.handleToggleOpened)
		r.Get("/api/stats/resolve", s.handleResolveStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
