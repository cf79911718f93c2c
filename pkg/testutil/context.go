package testutil

import (
	"context"
	"net/http"

	"zonegrid/internal/platform/middleware"
)

// WithActor adds an actor identity to the request context, simulating what
// the actor middleware does for attributed requests.
func WithActor(req *http.Request, actorID string) *http.Request {
	if actorID == "" {
		return req
	}
	ctx := context.WithValue(req.Context(), middleware.ContextKeyActorID, actorID)
	return req.WithContext(ctx)
}

// WithRequestID adds a correlation id to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	if requestID == "" {
		return req
	}
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRequestID, requestID)
	return req.WithContext(ctx)
}
