// Package web serves the podcast summary page, the submission form and a
// small read-only JSON API.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/podcast-digest/internal/catalog"
	"github.com/JakeFAU/podcast-digest/internal/metrics"
	"github.com/JakeFAU/podcast-digest/internal/podcast"
	"github.com/JakeFAU/podcast-digest/internal/submission"
	"github.com/JakeFAU/podcast-digest/internal/syncer"
)

// Syncer refreshes the record store from the spreadsheet mirror.
type Syncer interface {
	Sync(ctx context.Context) (syncer.Result, error)
}

// CatalogLoader builds the title-keyed catalog from the record store.
type CatalogLoader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// Submitter runs one submission to completion.
type Submitter interface {
	Submit(ctx context.Context, feedURL string) (submission.Result, error)
}

// Deps lists the collaborators of a Server. Ledger and Ready are optional.
type Deps struct {
	Syncer    Syncer
	Catalog   CatalogLoader
	Submitter Submitter
	Ledger    podcast.Ledger
	// Ready reports whether downstream dependencies can serve traffic.
	Ready          func(ctx context.Context) error
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the sync, catalog and submission steps.
type Server struct {
	router chi.Router
	deps   Deps
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(deps.RequestTimeout))
		r.Get("/", s.index)
		r.Post("/submit", s.submit)
		r.Route("/api", func(r chi.Router) {
			r.Get("/podcasts", s.listPodcasts)
			r.Get("/submissions", s.listSubmissions)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type podcastSummary struct {
	Title        string `json:"title"`
	EpisodeTitle string `json:"episode_title"`
	Filename     string `json:"filename"`
}

func (s *Server) listPodcasts(w http.ResponseWriter, r *http.Request) {
	cat, err := s.deps.Catalog.Load(r.Context())
	if err != nil {
		s.logger.Error("load catalog", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}
	out := make([]podcastSummary, 0, cat.Len())
	for _, title := range cat.Titles() {
		rec, _ := cat.Get(title)
		out = append(out, podcastSummary{
			Title:        title,
			EpisodeTitle: rec.Details.EpisodeTitle,
			Filename:     cat.Filename(title),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"podcasts": out, "default": cat.Default()})
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ledger == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"submissions": []podcast.Submission{}})
		return
	}
	subs, err := s.deps.Ledger.Recent(r.Context(), 50)
	if err != nil {
		s.logger.Error("list submissions", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
