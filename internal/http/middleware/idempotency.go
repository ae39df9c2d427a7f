// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on create requests and
// stashes the key so handlers can hand it to the services, which own replay
// and conflict detection. Handlers read it with GetIdempotencyKey.
package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/test-stack-api/internal/apperr"
)

// HeaderIdempotencyKey is the request header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const ctxKeyIdemKey = "idem.key"

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stored by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; defaults to ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// IdempotencyValidator checks the Idempotency-Key header when present.
//
// Behavior:
//   - Header absent: no-op.
//   - Header invalid: records apperr.BadRequest (INVALID_IDEMPOTENCY_KEY)
//     and aborts; the error normalizer renders it.
//   - Header valid: stores the key for the handler. Whether the request is a
//     replay is decided by the service inside its create transaction.
func IdempotencyValidator(opts IdempotencyOptions) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			_ = c.Error(apperr.BadRequest("invalid Idempotency-Key header", apperr.CodeInvalidIdempotency))
			c.Abort()
			return
		}

		c.Set(ctxKeyIdemKey, key)
		c.Next()
	}
}
