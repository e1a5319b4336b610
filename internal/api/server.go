// Package api exposes the ops HTTP surface: health, readiness, metrics, and
// manual run triggering.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/ingest"
	"github.com/jibbs-ai/catalog-ingest/internal/metrics"
	"github.com/jibbs-ai/catalog-ingest/internal/middleware"
)

// Pinger is a liveness check for one backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunStarter starts one ingest run to completion.
type RunStarter interface {
	Run(ctx context.Context, categories []string) (ingest.RunSummary, error)
}

// Server serves the ops API.
type Server struct {
	checks     map[string]Pinger
	runner     RunStarter
	categories []string
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	lastRun *ingest.RunSummary
}

// NewServer builds a Server. checks maps a store name to its Ping; runner may
// be nil, which disables manual run triggering.
func NewServer(checks map[string]Pinger, runner RunStarter, categories []string, logger *zap.Logger) *Server {
	return &Server{
		checks:     checks,
		runner:     runner,
		categories: categories,
		logger:     logger,
	}
}

// Handler returns the chi router for the ops API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/v1/runs", s.handleStartRun)
	r.Get("/v1/runs/latest", s.handleLatestRun)
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(s.checks))}
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type startRunRequest struct {
	Categories []string `json:"categories"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "run triggering is not configured"})
		return
	}

	var req startRunRequest
	// An empty body means the configured default categories.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	categories := req.Categories
	if len(categories) == 0 {
		categories = s.categories
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already in progress"})
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		// Runs outlive the triggering request.
		summary, err := s.runner.Run(context.Background(), categories)
		s.mu.Lock()
		s.running = false
		s.lastRun = &summary
		s.mu.Unlock()
		if err != nil {
			s.logger.Error("triggered run failed", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "accepted",
		"categories": categories,
	})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	last := s.lastRun
	running := s.running
	s.mu.Unlock()

	if last == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"running": running})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running": running,
		"summary": last,
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
