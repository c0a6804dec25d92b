// Package api exposes the HTTP interface of the synchronization service.
// Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/sync to trigger a synchronization run.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ldesmet/cinesync/internal/metrics"
	"github.com/ldesmet/cinesync/internal/sync"
)

// Runner executes one synchronization run.
type Runner interface {
	Run(ctx context.Context) (sync.Summary, error)
}

// Server wires HTTP handlers to the synchronization pipeline.
type Server struct {
	router chi.Router
	runner Runner
	logger *zap.Logger
	busy   atomic.Bool
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(5 * time.Second))
		r.Get("/healthz", s.healthz)
		r.Get("/readyz", s.readyz)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// No timeout middleware here: a run crawls the whole catalog and its
	// duration is bounded by the request context only.
	r.Post("/v1/sync", s.handleSync)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !s.busy.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "a synchronization run is already in progress")
		return
	}
	defer s.busy.Store(false)

	summary, err := s.runner.Run(r.Context())
	if err != nil {
		if sync.IsBlocked(err) {
			s.logger.Warn("synchronization run blocked by source", zap.Error(err))
			writeError(w, http.StatusForbidden, "source blocked the crawler")
			return
		}
		s.logger.Error("synchronization run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "synchronization run failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
