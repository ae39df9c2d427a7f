package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/test-stack-api/internal/apperr"
)

func TestIdempotencyHelpers_Defaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected empty key when not set")
	}
	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("non-string key must be treated as absent")
	}
}

func TestIdempotencyValidator_NoHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{}))
	r.POST("/items", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("no key expected without a header")
		}
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/items", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}

func TestIdempotencyValidator_InvalidKeyRecordsBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[string]string{
		"too long":  strings.Repeat("k", 9),
		"bad chars": "has space",
	}
	for name, key := range cases {
		t.Run(name, func(t *testing.T) {
			var recorded error
			handlerRan := false

			r := gin.New()
			r.Use(func(c *gin.Context) {
				c.Next()
				if len(c.Errors) > 0 {
					recorded = c.Errors.Last().Err
				}
			})
			r.Use(IdempotencyValidator(IdempotencyOptions{MaxLen: 8, Pattern: regexp.MustCompile(`^[a-z-]+$`)}))
			r.POST("/items", func(c *gin.Context) { handlerRan = true })

			req := httptest.NewRequest(http.MethodPost, "/items", nil)
			req.Header.Set(HeaderIdempotencyKey, key)
			r.ServeHTTP(httptest.NewRecorder(), req)

			if handlerRan {
				t.Fatalf("handler must not run for invalid key")
			}
			e, ok := apperr.As(recorded)
			if !ok || e.Kind() != apperr.KindBadRequest || e.Code() != apperr.CodeInvalidIdempotency {
				t.Fatalf("expected bad request apperr, got %v", recorded)
			}
		})
	}
}

func TestIdempotencyValidator_StashesValidKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{}))
	r.POST("/notes", func(c *gin.Context) {
		if k, ok := GetIdempotencyKey(c); !ok || k != "key-1:retry.2" {
			t.Fatalf("key not stashed: %q", k)
		}
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notes", nil)
	req.Header.Set(HeaderIdempotencyKey, "key-1:retry.2")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}
