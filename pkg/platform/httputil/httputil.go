// Package httputil provides shared JSON response and request decoding
// helpers for HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "zonegrid/pkg/domain-errors"
)

// WriteJSON serializes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates a domain error to an HTTP response. Internal and
// timeout errors omit the description so storage details never leak to
// clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal && code != dErrors.CodeTimeout {
		var dErr *dErrors.Error
		if errors.As(err, &dErr) && dErr.Message != "" {
			body["error_description"] = dErr.Message
		}
	}
	WriteJSON(w, status, body)
}

// DecodeJSON decodes the request body into T and writes a validation error
// response on failure. The second return reports whether decoding succeeded.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		var zero T
		return zero, false
	}
	return req, true
}
