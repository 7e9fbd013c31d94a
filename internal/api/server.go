// Package api exposes the HTTP interface for the discovery service.
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

	"github.com/linkly-crm/leadscout/internal/config"
	"github.com/linkly-crm/leadscout/internal/discovery"
	"github.com/linkly-crm/leadscout/internal/metrics"
)

// Discoverer runs a discovery batch on behalf of an owner.
type Discoverer interface {
	Discover(ctx context.Context, ownerID string, keywords []string, limit int) ([]discovery.JobSummary, error)
}

// Server wires HTTP handlers to the orchestrator and job store.
type Server struct {
	router chi.Router
	jobs   discovery.JobStore
	disc   Discoverer
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(jobs discovery.JobStore, disc Discoverer, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		jobs:   jobs,
		disc:   disc,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Route("/discovery", func(r chi.Router) {
			r.Post("/", s.postDiscovery)
			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", s.listJobs)
				r.Get("/{job_id}", s.getJob)
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

type discoveryRequest struct {
	Keywords []string `json:"keywords"`
	Limit    *int     `json:"limit"`
}

type jobView struct {
	ID          string    `json:"id"`
	Keyword     string    `json:"keyword"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	LastError   string    `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func viewOf(job discovery.Job) jobView {
	return jobView{
		ID:          job.ID,
		Keyword:     job.Keyword,
		Status:      string(job.Status),
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		LastError:   job.LastError,
		CreatedAt:   job.Created,
		UpdatedAt:   job.Updated,
	}
}

func (s *Server) postDiscovery(w http.ResponseWriter, r *http.Request) {
	var req discoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}

	summaries, err := s.disc.Discover(r.Context(), ownerFrom(r.Context()), req.Keywords, limit)
	if err != nil {
		if isValidationError(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("discovery batch failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "discovery failed")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"jobs": summaries})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, discovery.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("get job failed", zap.String("job_id", jobID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if job.OwnerID != ownerFrom(r.Context()) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": viewOf(job)})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	var status *discovery.JobStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := discovery.JobStatus(raw)
		switch st {
		case discovery.StatusPending, discovery.StatusCompleted, discovery.StatusFailed:
			status = &st
		default:
			s.writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
	}
	jobs, err := s.jobs.ListJobs(r.Context(), ownerFrom(r.Context()), status)
	if err != nil {
		s.logger.Error("list jobs failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, viewOf(job))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

func isValidationError(err error) bool {
	return errors.Is(err, discovery.ErrNoKeywords) ||
		errors.Is(err, discovery.ErrBlankKeyword) ||
		errors.Is(err, discovery.ErrLimitOutOfRange)
}

type ownerKey struct{}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// authMiddleware resolves the caller identity used as job owner. With auth
// enabled the API key must map to a configured owner; otherwise every
// request runs as the development owner.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := s.cfg.Auth.DevOwner
		if s.cfg.Auth.Enabled {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			mapped, ok := s.cfg.Auth.APIKeys[key]
			if !ok {
				s.writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			owner = mapped
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
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
				s.writeError(w, http.StatusInternalServerError, "internal server error")
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

type requestIDKey struct{}

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
