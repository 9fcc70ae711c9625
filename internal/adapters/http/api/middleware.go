// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/tally/pkg/metrics"
)

// Identity headers. Authentication itself is an upstream collaborator; by
// the time a request reaches this service the gateway has resolved the
// caller and stamped these headers.
const (
	headerUserID   = "X-User-ID"
	headerUsername = "X-User-Name"
)

type contextKey int

const (
	userIDKey contextKey = iota
	usernameKey
)

// Identity resolves the authenticated user from request headers and stores
// it on the context. Requests without an identity are rejected.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(headerUserID))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
			return
		}
		username := strings.TrimSpace(r.Header.Get(headerUsername))
		if username == "" {
			username = userID
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, usernameKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the resolved identity stored by Identity.
func UserFromContext(ctx context.Context) (userID, username string, ok bool) {
	userID, ok = ctx.Value(userIDKey).(string)
	if !ok {
		return "", "", false
	}
	username, _ = ctx.Value(usernameKey).(string)
	return userID, username, true
}

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Capture the status code written by the handler.
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, durationMs)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
