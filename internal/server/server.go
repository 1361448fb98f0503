// Package server provides the HTTP API for asynchronous build runs.
//
// Endpoints:
//
//	POST /builds            — enqueue a new run; returns its id immediately
//	GET  /builds            — list runs, newest first
//	GET  /builds/{id}       — poll run status and retrieve artefact details
//	GET  /builds/{id}/logs  — page through the run's tool log
//	GET  /healthz           — liveness probe
//
// Submitted runs wait in a bounded queue and a single worker executes them
// in order; a full queue rejects the submission with 503.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wheelhouse/internal/config"
	"wheelhouse/internal/logtail"
	"wheelhouse/internal/run"
	"wheelhouse/internal/storage"
)

// Server holds the dependencies shared across HTTP handlers.
type Server struct {
	store    run.Store
	worker   *run.Worker
	uploader storage.Uploader
	log      *zap.Logger
	mux      *http.ServeMux
	handler  http.Handler

	// cfg is the base configuration for every run; request fields may
	// override individual values on a per-run copy.
	cfg *config.Config
}

// New creates a Server wired to the given store, worker and uploader. The
// caller owns the worker's lifecycle and must have started it for submitted
// runs to execute.
func New(store run.Store, worker *run.Worker, uploader storage.Uploader, cfg *config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		store:    store,
		worker:   worker,
		uploader: uploader,
		log:      log,
		cfg:      cfg,
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /builds", s.handleCreateBuild)
	s.mux.HandleFunc("GET /builds", s.handleListBuilds)
	s.mux.HandleFunc("GET /builds/{id}", s.handleGetBuild)
	s.mux.HandleFunc("GET /builds/{id}/logs", s.handleGetBuildLogs)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.handler = s.withRequestID(s.mux)

	return s
}

// Handler returns the root handler, request id middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the HTTP server on the given address and shuts it
// down gracefully when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: failed to shut down: %w", err)
		}
		<-errCh
		return nil
	}
}

// createBuildRequest is the JSON body for POST /builds. All fields are
// optional; omitted ones fall back to the server configuration.
type createBuildRequest struct {
	Profile        string `json:"profile,omitempty"`
	PythonVersions string `json:"python_versions,omitempty"`
}

// createBuildResponse is returned immediately from POST /builds.
type createBuildResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleCreateBuild(w http.ResponseWriter, r *http.Request) {
	var req createBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// Each run gets its own copy of the configuration so request overrides
	// never bleed into other runs.
	cfg := *s.cfg
	if req.Profile != "" {
		cfg.Profile = req.Profile
	}
	profile, err := cfg.ActiveProfile()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown profile %q", cfg.Profile))
		return
	}
	if req.PythonVersions != "" {
		cfg.Build.PythonVersions = req.PythonVersions
	}

	b, err := s.store.Create(cfg.Profile, req.PythonVersions)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create run: "+err.Error())
		return
	}

	// The queue is drained by a single worker under the server's lifetime
	// context, so the run outlives this request and never overlaps another
	// run in the shared work directory.
	enqueueErr := s.worker.Enqueue(run.WorkerOptions{
		RunID:    b.ID,
		Store:    s.store,
		Config:   &cfg,
		Profile:  profile,
		Logger:   s.log,
		Uploader: s.uploader,
		LogDir:   s.cfg.Server.LogDir,
	})
	if enqueueErr != nil {
		_ = s.store.MarkFailed(b.ID, enqueueErr)
		writeError(w, http.StatusServiceUnavailable, "build queue is full, retry later")
		return
	}

	writeJSON(w, http.StatusAccepted, createBuildResponse{
		ID:     b.ID,
		Status: string(run.StatusPending),
	})
}

func (s *Server) handleListBuilds(w http.ResponseWriter, _ *http.Request) {
	runs, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, run.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("run %q not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load run: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleGetBuildLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, run.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("run %q not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load run: "+err.Error())
		return
	}
	if b.LogPath == "" {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %q has no log yet", id))
		return
	}

	var offset int64
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid offset %q", raw))
			return
		}
	}

	chunk, err := logtail.Read(b.LogPath, offset)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("run %q has no log yet", id))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read log: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, chunk)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withRequestID tags every request with an id, echoing one supplied by the
// caller, so server logs line up with CI-side request logs.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		s.log.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
