package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	contextKeyTenant    contextKey = "tenant-id"
	contextKeyRequestID contextKey = "request-id"
)

const (
	tenantHeader    = "X-Tenant-Id"
	requestIDHeader = "X-Request-Id"
)

// requestIDMiddleware tags every request with an id for log correlation.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyRequestID, id)))
	})
}

// loggingMiddleware logs one line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("requestId", requestIDFromContext(r.Context())),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// requireTenant validates the identity claim before any collaborator call.
// The claim is injected by the fronting authorizer; an absent claim is a 401
// and the request goes no further.
func (s *Server) requireTenant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := strings.TrimSpace(r.Header.Get(tenantHeader))
		if tenantID == "" {
			s.logger.Warn("request without tenant identity",
				zap.String("path", r.URL.Path),
				zap.String("requestId", requestIDFromContext(r.Context())))
			writeError(w, http.StatusUnauthorized, "missing tenant identity")
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyTenant, tenantID)
		next(w, r.WithContext(ctx))
	}
}

func tenantFromContext(ctx context.Context) string {
	tenantID, _ := ctx.Value(contextKeyTenant).(string)
	return tenantID
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}
