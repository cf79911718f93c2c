package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestID(t *testing.T) {
	t.Run("generates an id when none is supplied", func(t *testing.T) {
		var captured string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetRequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if captured == "" {
			t.Fatal("expected a generated request id")
		}
		if got := rec.Header().Get(HeaderRequestID); got != captured {
			t.Fatalf("expected echoed header %q, got %q", captured, got)
		}
	})

	t.Run("reuses the inbound header", func(t *testing.T) {
		var captured string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "upstream-id")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if captured != "upstream-id" {
			t.Fatalf("expected upstream-id, got %q", captured)
		}
	})
}

func TestActor(t *testing.T) {
	t.Run("lifts the actor header into context", func(t *testing.T) {
		var captured string
		handler := Actor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetActorID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderActorID, "ops@example")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if captured != "ops@example" {
			t.Fatalf("expected ops@example, got %q", captured)
		}
	})

	t.Run("missing header leaves the actor empty", func(t *testing.T) {
		var captured string
		handler := Actor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetActorID(r.Context())
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if captured != "" {
			t.Fatalf("expected empty actor, got %q", captured)
		}
	})
}
