// Package domainerrors provides the coded error taxonomy shared across
// modules. Services classify failures with a Code; transports translate
// codes to protocol-specific responses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeNotFound marks lookups for entities that are absent or excluded
	// by soft-delete / inactive filters.
	CodeNotFound Code = "not_found"
	// CodeConflict marks uniqueness and duplicate-pair violations, and
	// stale optimistic-concurrency writes.
	CodeConflict Code = "conflict"
	// CodeValidation marks malformed caller input.
	CodeValidation Code = "validation"
	// CodeInvariantViolation marks domain invariants broken during
	// construction or state transitions.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout marks operations aborted by context cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks storage or infrastructure failures not classified
	// above.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It wraps an optional cause so errors.Is and
// errors.As keep working through the chain.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err is not a
// coded error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status transports should emit.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
