// Package server exposes the profiling pipeline over HTTP and maps pipeline
// failures onto the 400/401/500 error contract.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/profiler"
	"github.com/PerformanceProfiler/serverless-performance-profiler/pkg/store"
)

// DefaultRequestTimeout bounds one profiling request end to end.
const DefaultRequestTimeout = 30 * time.Second

// ProfileService is the pipeline the handlers drive.
type ProfileService interface {
	Profile(ctx context.Context, tenantID string, functionNames []string, window models.Window) (models.MetricsReport, error)
}

// Server is the HTTP surface of the profiler.
type Server struct {
	router   *mux.Router
	profiler ProfileService
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

func New(profileSvc ProfileService, logger *zap.Logger, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	s := &Server{
		router:   mux.NewRouter(),
		profiler: profileSvc,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/metrics", s.requireTenant(s.handleMetrics)).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantFromContext(r.Context())

	functionNames, err := parseFunctionNames(r.URL.Query().Get("functionNames"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window, err := parseWindow(r.URL.Query().Get("startTime"), r.URL.Query().Get("endTime"), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	report, err := s.profiler.Profile(ctx, tenantID, functionNames, window)
	if err != nil {
		s.respondProfileError(w, r, tenantID, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// respondProfileError maps pipeline failures onto the error taxonomy:
// authorization problems are 400 (the caller can fix them, retrying cannot),
// everything else is 500 (the caller must retry the whole request).
func (s *Server) respondProfileError(w http.ResponseWriter, r *http.Request, tenantID string, err error) {
	requestID := requestIDFromContext(r.Context())

	switch {
	case errors.Is(err, store.ErrTenantNotFound):
		s.logger.Warn("unknown tenant",
			zap.String("tenant", tenantID), zap.String("requestId", requestID))
		writeError(w, http.StatusBadRequest, "tenant is not configured for delegated access")
	case profiler.IsAuthorizationError(err):
		s.logger.Warn("delegation rejected",
			zap.String("tenant", tenantID), zap.String("requestId", requestID), zap.Error(err))
		writeError(w, http.StatusBadRequest, "tenant role delegation was rejected")
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Error("profiling request timed out",
			zap.String("tenant", tenantID), zap.String("requestId", requestID))
		writeError(w, http.StatusInternalServerError, "request deadline exceeded")
	default:
		s.logger.Error("profiling request failed",
			zap.String("tenant", tenantID), zap.String("requestId", requestID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseFunctionNames splits the required comma-separated functionNames
// parameter, dropping empty segments.
func parseFunctionNames(raw string) ([]string, error) {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, errors.New("functionNames query parameter is required")
	}
	return names, nil
}

// parseWindow parses optional RFC3339 bounds, defaulting each missing bound
// to the last-hour window.
func parseWindow(startRaw, endRaw string, now time.Time) (models.Window, error) {
	window := models.DefaultWindow(now)

	if startRaw != "" {
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			return models.Window{}, fmt.Errorf("startTime must be RFC3339: %q", startRaw)
		}
		window.Start = start
	}
	if endRaw != "" {
		end, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			return models.Window{}, fmt.Errorf("endTime must be RFC3339: %q", endRaw)
		}
		window.End = end
	}
	if window.Start.After(window.End) {
		return models.Window{}, errors.New("startTime cannot be after endTime")
	}
	return window, nil
}
