// Package problem is the single boundary that turns any failure into a
// Problem Details response (application/problem+json).
//
// Handlers and middleware never write error bodies themselves. They record
// the error with Abort (or c.Error) and return; Handler, installed near the
// top of the chain, normalizes the last recorded error after the chain
// unwinds, logs it once and writes the response.
//
// Classification:
//
//	validation   *validate.Failure  -> 400 "Validation Failed" + errors
//	domain       *apperr.Error      -> its own status/title/message
//	unexpected   anything else      -> 500 "Internal Server Error"
//
// Details of unexpected errors are only exposed when Development is set.
package problem

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/test-stack-api/internal/apperr"
	"github.com/tbourn/test-stack-api/internal/http/middleware"
	"github.com/tbourn/test-stack-api/internal/validate"
	"github.com/tbourn/test-stack-api/pkg/contracts"
)

// ContentType is the media type of every error body.
const ContentType = "application/problem+json"

// Kind is the classification of a normalized failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindDomain     Kind = "domain"
	KindUnexpected Kind = "unexpected"
)

const (
	validationTitle  = "Validation Failed"
	validationDetail = "One or more validation errors occurred."
	internalTitle    = "Internal Server Error"
	internalDetail   = "An unexpected error occurred."
)

var problemsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "api_problems_total",
		Help: "Problem responses written, by kind and status.",
	},
	[]string{"kind", "status"},
)

func init() {
	prometheus.MustRegister(problemsTotal)
}

// Input carries the request facts a problem body is stamped with.
type Input struct {
	Instance    string
	TraceID     string
	Development bool
}

// Normalize maps err to a Problem Details body. It is pure: the same input
// always yields the same output and nothing is logged.
func Normalize(err error, in Input) (contracts.ProblemDetails, Kind) {
	pd := contracts.ProblemDetails{Instance: in.Instance, TraceID: in.TraceID}

	var pe *middleware.PanicError
	if errors.As(err, &pe) {
		return unexpected(pd, err, in.Development), KindUnexpected
	}

	var f *validate.Failure
	if errors.As(err, &f) {
		pd.Type = contracts.TypeValidation
		pd.Title = validationTitle
		pd.Status = http.StatusBadRequest
		pd.Detail = validationDetail
		pd.Errors = f.Issues
		if pd.Errors == nil {
			pd.Errors = []contracts.FieldIssue{}
		}
		return pd, KindValidation
	}

	if e, ok := apperr.As(err); ok {
		pd.Type = e.TypeURI()
		pd.Title = e.Title()
		pd.Status = e.Status()
		pd.Detail = e.Message()
		return pd, KindDomain
	}

	return unexpected(pd, err, in.Development), KindUnexpected
}

func unexpected(pd contracts.ProblemDetails, err error, dev bool) contracts.ProblemDetails {
	pd.Type = contracts.TypeInternal
	pd.Title = internalTitle
	pd.Status = http.StatusInternalServerError
	pd.Detail = internalDetail
	if dev && err != nil {
		pd.Detail = err.Error()
	}
	return pd
}

// Options configures Handler.
type Options struct {
	// Development exposes raw error messages of unexpected failures.
	Development bool
}

// Handler returns the error boundary middleware.
//
// After the rest of the chain has run it takes the last error recorded on the
// context, normalizes it, writes it with Content-Type application/problem+json
// and emits exactly one log entry through the request-scoped logger:
//   - validation: warn "Validation error" with every field issue
//   - domain:     warn (error for 5xx) "Application error" with the code,
//     message and cause
//   - unexpected: error "Internal server error" with the error and, for
//     panics, the stack
//
// If a response has already been written the error is only logged.
func Handler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		pd, kind := Normalize(err, Input{
			Instance:    c.Request.URL.Path,
			TraceID:     middleware.TraceID(c),
			Development: opts.Development,
		})

		lg := middleware.LoggerFrom(c).With().Str("kind", string(kind)).Logger()
		switch kind {
		case KindValidation:
			lg.Warn().
				Int("status", pd.Status).
				Int("issues", len(pd.Errors)).
				Interface("errors", pd.Errors).
				Msg("Validation error")
		case KindDomain:
			e, _ := apperr.As(err)
			ev := lg.Warn()
			if pd.Status >= http.StatusInternalServerError {
				ev = lg.Error()
			}
			ev.Int("status", pd.Status).
				Str("code", e.Code()).
				Str("error_kind", e.Kind().String()).
				Str("detail", e.Message()).
				AnErr("cause", e.Cause()).
				Msg("Application error")
		default:
			ev := lg.Error().Err(err).Int("status", pd.Status)
			var pe *middleware.PanicError
			if errors.As(err, &pe) {
				ev = ev.Bytes("stack", pe.Stack)
			}
			ev.Msg("Internal server error")
		}

		if c.Writer.Written() {
			return
		}

		problemsTotal.WithLabelValues(string(kind), strconv.Itoa(pd.Status)).Inc()
		c.Header("Content-Type", ContentType)
		c.AbortWithStatusJSON(pd.Status, pd)
	}
}

// Abort records err for Handler and stops the handler chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
