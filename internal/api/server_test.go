package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/ingest"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type stubRunner struct {
	calls   atomic.Int32
	summary ingest.RunSummary
	block   chan struct{}
}

func (r *stubRunner) Run(_ context.Context, categories []string) (ingest.RunSummary, error) {
	r.calls.Add(1)
	if r.block != nil {
		<-r.block
	}
	s := r.summary
	s.Categories = categories
	return s, nil
}

func TestHealthzAllOK(t *testing.T) {
	t.Parallel()

	checks := map[string]Pinger{
		"relational": pingFunc(func(context.Context) error { return nil }),
		"vector":     pingFunc(func(context.Context) error { return nil }),
	}
	srv := NewServer(checks, nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "ok", resp.Checks["relational"])
}

func TestHealthzDegraded(t *testing.T) {
	t.Parallel()

	checks := map[string]Pinger{
		"relational": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}
	srv := NewServer(checks, nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "degraded")
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, nil, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStartRunDefaultsCategories(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{summary: ingest.RunSummary{RunID: "run-1", Succeeded: 3}}
	srv := NewServer(nil, runner, []string{"shoes", "jackets"}, zap.NewNop())
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/runs", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), "shoes")

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/latest", nil))
		return rec.Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, int32(1), runner.calls.Load())
}

func TestStartRunRejectsConcurrent(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{block: make(chan struct{})}
	srv := NewServer(nil, runner, []string{"shoes"}, zap.NewNop())
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/runs", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/runs", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	close(runner.block)
}

func TestStartRunExplicitCategories(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	srv := NewServer(nil, runner, []string{"shoes"}, zap.NewNop())

	body := strings.NewReader(`{"categories":["bodysuits"]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), "bodysuits")
}

func TestLatestRunBeforeAnyRun(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, &stubRunner{}, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/latest", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
