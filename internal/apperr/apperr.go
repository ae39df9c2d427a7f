// Package apperr defines the closed taxonomy of anticipated domain failures.
//
// Services return *Error values when a request cannot be satisfied for a
// reason the API contract anticipates (missing resource, conflicting state,
// malformed intent). Anything else that reaches the HTTP boundary is treated
// as unanticipated and rendered as a generic 500 by the error normalizer.
//
// Conventions:
//   - Construction never logs and has no side effects.
//   - Values are immutable; WithType and WithCause return modified copies.
//   - Code is a stable, machine-readable string (UPPER_SNAKE_CASE).
//   - Message is safe to show to API consumers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an Error. The set is closed.
type Kind int

const (
	KindUnknown Kind = iota
	KindBadRequest
	KindNotFound
	KindConflict
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Default machine-readable codes.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL_ERROR"

	// Domain-specific:
	CodeIdempotencyKeyReused = "IDEMPOTENCY_KEY_REUSED"
	CodeInvalidIdempotency   = "INVALID_IDEMPOTENCY_KEY"
	CodeItemNotFound         = "ITEM_NOT_FOUND"
	CodeNoteNotFound         = "NOTE_NOT_FOUND"
	CodeRouteNotFound        = "ROUTE_NOT_FOUND"
)

// Error is an anticipated domain failure.
type Error struct {
	kind    Kind
	status  int
	code    string
	title   string
	message string
	typeURI string
	cause   error
}

func newError(kind Kind, status int, title, defCode, msg string, code []string) *Error {
	c := defCode
	if len(code) > 0 && code[0] != "" {
		c = code[0]
	}
	return &Error{kind: kind, status: status, code: c, title: title, message: msg}
}

// BadRequest reports a request the domain refuses (400).
func BadRequest(msg string, code ...string) *Error {
	return newError(KindBadRequest, http.StatusBadRequest, "Bad Request", CodeBadRequest, msg, code)
}

// NotFound reports a missing resource (404).
func NotFound(msg string, code ...string) *Error {
	return newError(KindNotFound, http.StatusNotFound, "Not Found", CodeNotFound, msg, code)
}

// Conflict reports a request that clashes with current state (409).
func Conflict(msg string, code ...string) *Error {
	return newError(KindConflict, http.StatusConflict, "Conflict", CodeConflict, msg, code)
}

// Internal reports a failure the service detected but cannot recover from (500).
func Internal(msg string, code ...string) *Error {
	return newError(KindInternal, http.StatusInternalServerError, "Internal Server Error", CodeInternal, msg, code)
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }
func (e *Error) Status() int { return e.status }
func (e *Error) Code() string { return e.code }
func (e *Error) Title() string { return e.title }
func (e *Error) Message() string { return e.message }
func (e *Error) TypeURI() string { return e.typeURI }
func (e *Error) Cause() error { return e.cause }

// WithType returns a copy carrying a problem type URI.
func (e *Error) WithType(uri string) *Error {
	cp := *e
	cp.typeURI = uri
	return &cp
}

// WithCause returns a copy wrapping cause. The cause is never shown to
// API consumers.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// Is matches any *Error with the same kind, code and message, including
// copies made by WithType or WithCause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == t.kind && e.code == t.code && e.message == t.message
}

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.kind
	}
	return KindUnknown
}
