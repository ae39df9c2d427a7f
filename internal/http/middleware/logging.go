// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request correlation, the per-request timing hook and a
// panic-safe recovery handler:
//
//   - RequestID() reads or mints the x-trace-id correlation ID, stores it in
//     the Gin context and the request context, and echoes it on the response.
//   - Logger() attaches a request-scoped zerolog.Logger and emits exactly one
//     "request completed" entry per request with status and duration, at a
//     level chosen by outcome (info/warn/error).
//   - Recovery() converts panics into a *PanicError recorded on the context so
//     the error normalizer renders them like any other unanticipated failure.
//   - LoggerFrom() retrieves the request-scoped logger inside handlers.
//
// Recommended order:
//  1. RequestID()
//  2. Logger()
//  3. problem.Handler()
//  4. Recovery()
//
// so that panics reach the normalizer and every log line carries trace_id.
package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// traceIDKey is the Gin context key under which the trace ID is stored.
	traceIDKey = "traceID"
	// loggerKey is the Gin context key of the request-scoped logger.
	loggerKey = "logger"
	// TraceIDHeader propagates the correlation ID in both directions.
	TraceIDHeader = "X-Trace-ID"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

type traceIDCtxKey struct{}

// WithTraceID returns a copy of ctx carrying the trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDCtxKey{}, id)
}

// TraceIDFrom returns the trace ID stored in ctx, or "".
func TraceIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDCtxKey{}).(string)
	return id
}

// TraceID returns the correlation ID of the current request.
func TraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}

// RequestID attaches (or propagates) a correlation identifier per request.
//
// Behavior:
//   - A non-empty x-trace-id header (case-insensitive) is trusted verbatim.
//     Otherwise a new UUIDv4 is generated.
//   - The ID is written back as X-Trace-ID, stored in the Gin context and
//     attached to c.Request.Context() for services and repositories.
//
// The ID lives for one request only and is never persisted.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		tid := c.GetHeader(TraceIDHeader)
		if tid == "" {
			tid = uuid.NewString()
		}
		c.Set(traceIDKey, tid)
		c.Writer.Header().Set(TraceIDHeader, tid)
		c.Request = c.Request.WithContext(WithTraceID(c.Request.Context(), tid))
		c.Next()
	}
}

// Logger is the per-request timing hook.
//
// On entry it records the start time and builds a logger carrying trace_id,
// method, path and the scrubbed query string. The logger is stored in the Gin
// context (see LoggerFrom) and on the request context (zerolog.Ctx).
//
// When the handler chain returns, exactly one "request completed" entry is
// written with status and duration in milliseconds:
//   - error() for 5xx,
//   - warn()  for 4xx,
//   - info()  otherwise.
//
// Place this after RequestID() so logs include the correlation ID.
func Logger(opts RedactOptions) gin.HandlerFunc {
	scrub := newRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()

		l := log.With().
			Str("trace_id", TraceID(c)).
			Str("method", c.Request.Method).
			Str("path", routeLabel(c)).
			Str("query", truncate(scrub.text(c.Request.URL.RawQuery), maxQueryLogLength)).
			Logger()

		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		l.Debug().
			Str("remote_ip", c.ClientIP()).
			Interface("headers", scrub.headers(c.Request.Header)).
			Msg("request started")

		defer func() {
			status := c.Writer.Status()
			var ev *zerolog.Event
			switch {
			case status >= 500:
				ev = l.Error()
			case status >= 400:
				ev = l.Warn()
			default:
				ev = l.Info()
			}
			ev.Int("status", status).
				Dur("duration", time.Since(start)).
				Int("bytes_out", c.Writer.Size()).
				Msg("request completed")
		}()

		c.Next()
	}
}

// PanicError is recorded on the Gin context when a handler panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "panic: " + err.Error()
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recovery intercepts panics and hands them to the error normalizer as a
// *PanicError. It does not write a response or log; the normalizer does both.
//
// Place this after problem.Handler() so the recorded error is rendered.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				_ = c.Error(&PanicError{Value: rec, Stack: debug.Stack()})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger.
//
// If a logger was not previously attached by Logger(), a fallback logger
// carrying only the trace ID is returned. Callers can safely use the result
// without nil checks.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Str("trace_id", TraceID(c)).Logger()
	return &l
}

// truncate returns s unchanged when within max length, otherwise it truncates
// s to max bytes and appends an ellipsis. A max <= 0 disables truncation.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
