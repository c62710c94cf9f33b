// Package api serves the reference remote progress store over HTTP. The sync
// engine only requires read, merge-write and watch; this service is one
// implementation of that contract, backed by sqlite.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"mealquest/internal/remote"
	"mealquest/internal/storage"
)

// Server is the progress API server.
type Server struct {
	router   *chi.Mux
	progress *storage.ProgressRepo
	hub      *watchHub
	logger   *slog.Logger
}

func NewServer(db *sql.DB, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		progress: storage.NewProgressRepo(db),
		hub:      newWatchHub(logger),
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/v1/users/{userID}", func(r chi.Router) {
		r.Get("/progress", s.handleGetProgress)
		r.Patch("/progress", s.handleMergeProgress)
		r.Get("/watch", s.handleWatch)
	})

	s.router = r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving the API until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.Info("progress api listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	rec, err := s.progress.Get(r.Context(), userID)
	if err != nil {
		s.internalError(w, "get progress", err)
		return
	}
	if rec == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleMergeProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var patch remote.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid patch: "+err.Error(), http.StatusBadRequest)
		return
	}

	merged, err := s.progress.Merge(r.Context(), userID, patch)
	if err != nil {
		s.internalError(w, "merge progress", err)
		return
	}

	// Fan the merged record out to other devices watching this user.
	s.hub.broadcast(userID, merged)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	s.hub.serve(w, r, userID)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
