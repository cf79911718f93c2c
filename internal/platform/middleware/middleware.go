// Package middleware carries per-request identity through context.
// Authentication and authorization happen upstream; by the time a request
// reaches this service the actor is already authorized and arrives as an
// opaque identity header used only for audit stamping.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Context keys for request-scoped values.
type contextKeyRequestID struct{}
type contextKeyActorID struct{}

var (
	ContextKeyRequestID = contextKeyRequestID{}
	ContextKeyActorID   = contextKeyActorID{}
)

// HeaderActorID is the header upstream gateways use to forward the
// already-authorized actor identity.
const HeaderActorID = "X-Actor-Id"

// HeaderRequestID echoes the request correlation id back to callers.
const HeaderRequestID = "X-Request-Id"

// GetRequestID retrieves the request correlation id from the context.
func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	if !ok {
		return ""
	}
	return requestID
}

// GetActorID retrieves the authorized actor identity from the context.
func GetActorID(ctx context.Context) string {
	actorID, ok := ctx.Value(ContextKeyActorID).(string)
	if !ok {
		return ""
	}
	return actorID
}

// RequestID assigns a correlation id to every request, reusing the inbound
// header when a gateway already set one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Actor lifts the forwarded actor identity into context. Absence is allowed;
// actor stamping fields stay empty for unattributed calls.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get(HeaderActorID)
		if actorID == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ContextKeyActorID, actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging emits one structured access log line per request.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"request_id", GetRequestID(r.Context()),
			)
		})
	}
}
