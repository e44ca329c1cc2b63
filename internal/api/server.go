// Package api exposes the HTTP interface for the ingestion service:
// health and readiness probes, Prometheus metrics, and feed run operations.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/metrics"
)

// ErrUnknownFeed signals a feed id the runner does not manage.
var ErrUnknownFeed = errors.New("unknown feed")

// RunStatus summarizes the most recent pipeline run of a feed.
type RunStatus struct {
	RunID      string    `json:"run_id"`
	FeedID     string    `json:"feed_id"`
	SourceType string    `json:"source_type"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Articles   int       `json:"articles"`
	Error      string    `json:"error,omitempty"`
}

// Ingestor is the runner surface the API depends on.
type Ingestor interface {
	// Feeds lists the managed feed configurations.
	Feeds() []feed.SourceConfig
	// Trigger executes a pipeline run for the feed and returns its status.
	Trigger(ctx context.Context, feedID string, forceRefresh bool) (RunStatus, error)
	// LastStatus reports the most recent run status for the feed.
	LastStatus(feedID string) (RunStatus, bool)
}

// Server wires HTTP handlers to the ingestor.
type Server struct {
	router   chi.Router
	ingestor Ingestor
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(ingestor Ingestor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{ingestor: ingestor, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/feeds", func(r chi.Router) {
			r.Get("/", s.listFeeds)
			r.Route("/{feed_id}", func(r chi.Router) {
				r.Post("/run", s.runFeed)
				r.Get("/status", s.feedStatus)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type feedSummary struct {
	FeedID         string          `json:"feed_id"`
	Name           string          `json:"name"`
	Type           feed.SourceType `json:"type"`
	URL            string          `json:"url,omitempty"`
	DailyPostLimit int             `json:"daily_post_limit"`
}

func (s *Server) listFeeds(w http.ResponseWriter, _ *http.Request) {
	feeds := s.ingestor.Feeds()
	out := make([]feedSummary, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, feedSummary{
			FeedID:         f.FeedID,
			Name:           f.Name,
			Type:           f.Type,
			URL:            f.URL,
			DailyPostLimit: f.DailyPostLimit,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"feeds": out})
}

func (s *Server) runFeed(w http.ResponseWriter, r *http.Request) {
	feedID := chi.URLParam(r, "feed_id")
	force := r.URL.Query().Get("force") == "true"

	status, err := s.ingestor.Trigger(r.Context(), feedID, force)
	switch {
	case errors.Is(err, ErrUnknownFeed):
		s.writeError(w, http.StatusNotFound, "feed not found")
		return
	case err != nil:
		s.writeJSON(w, http.StatusBadGateway, status)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) feedStatus(w http.ResponseWriter, r *http.Request) {
	feedID := chi.URLParam(r, "feed_id")
	status, ok := s.ingestor.LastStatus(feedID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no run recorded for feed")
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

type requestIDKey struct{}

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
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
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
