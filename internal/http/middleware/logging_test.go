package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf) // plain JSON lines
	return &buf
}

// completedEntries decodes the "request completed" lines from buf.
func completedEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if m["message"] == "request completed" {
			out = append(out, m)
		}
	}
	return out
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/tid", func(c *gin.Context) {
		if TraceID(c) == "" {
			t.Fatalf("trace id not set in gin context")
		}
		if TraceIDFrom(c.Request.Context()) != TraceID(c) {
			t.Fatalf("trace id missing from request context")
		}
		c.String(http.StatusOK, "ok")
	})

	// No header -> generated UUID
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tid", nil))
	gen := w.Header().Get(TraceIDHeader)
	if len(gen) != 36 {
		t.Fatalf("expected generated uuid in %s, got %q", TraceIDHeader, gen)
	}

	// Lowercase header -> propagated verbatim
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/tid", nil)
	req2.Header.Set("x-trace-id", "abc-123")
	r.ServeHTTP(w2, req2)
	if got := w2.Header().Get(TraceIDHeader); got != "abc-123" {
		t.Fatalf("expected propagated trace id, got %q", got)
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		id := w.Header().Get(TraceIDHeader)
		if seen[id] {
			t.Fatalf("duplicate trace id %q", id)
		}
		seen[id] = true
	}
}

func TestLogger_OneEntryPerRequestWithLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger(RedactOptions{}))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "hello") })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, p := range []string{"/ok", "/bad", "/boom", "/missing"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.Header.Set(TraceIDHeader, "tid"+p)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	entries := completedEntries(t, buf)
	if len(entries) != 4 {
		t.Fatalf("expected 4 completion entries, got %d:\n%s", len(entries), buf.String())
	}
	want := []struct{ level, path, tid string }{
		{"info", "/ok", "tid/ok"},
		{"warn", "/bad", "tid/bad"},
		{"error", "/boom", "tid/boom"},
		{"warn", "/missing", "tid/missing"},
	}
	for i, w := range want {
		e := entries[i]
		if e["level"] != w.level || e["path"] != w.path || e["trace_id"] != w.tid {
			t.Fatalf("entry %d = %v; want %+v", i, e, w)
		}
		if _, ok := e["duration"].(float64); !ok {
			t.Fatalf("entry %d missing numeric duration: %v", i, e)
		}
		if _, ok := e["status"].(float64); !ok {
			t.Fatalf("entry %d missing status: %v", i, e)
		}
	}
}

func TestLogger_EmitsEvenWhenLaterMiddlewareAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger(RedactOptions{}), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))

	if n := len(completedEntries(t, buf)); n != 1 {
		t.Fatalf("expected exactly one completion entry, got %d", n)
	}
}

func TestLogger_RequestScopedLoggerOnContexts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger(RedactOptions{}))
	r.GET("/inner", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("from gin")
		zerolog.Ctx(c.Request.Context()).Info().Msg("from ctx")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/inner", nil)
	req.Header.Set(TraceIDHeader, "scoped-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, "from ") && !strings.Contains(line, `"trace_id":"scoped-1"`) {
			t.Fatalf("inner log line lacks trace id: %s", line)
		}
	}
	if !strings.Contains(buf.String(), "from gin") || !strings.Contains(buf.String(), "from ctx") {
		t.Fatalf("expected both inner log lines, got:\n%s", buf.String())
	}
}

func TestLoggerFrom_Fallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(traceIDKey, "fallback-tid")

	lg := LoggerFrom(c)
	if lg == nil {
		t.Fatalf("LoggerFrom returned nil")
	}
	lg.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"trace_id":"fallback-tid"`) {
		t.Fatalf("fallback logger should carry trace id: %s", buf.String())
	}
}

func TestRecovery_RecordsPanicError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var recorded error
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		recorded = c.Errors.Last()
	})
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic(errors.New("db exploded")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	var pe *PanicError
	if !errors.As(recorded, &pe) {
		t.Fatalf("expected *PanicError on context, got %T (%v)", recorded, recorded)
	}
	if len(pe.Stack) == 0 {
		t.Fatalf("expected stack to be captured")
	}
	if pe.Error() != "panic: db exploded" {
		t.Fatalf("unexpected message %q", pe.Error())
	}
	if w.Body.Len() != 0 {
		t.Fatalf("recovery must not write a body, got %q", w.Body.String())
	}
}

func TestPanicError_NonErrorValue(t *testing.T) {
	pe := &PanicError{Value: 42}
	if pe.Error() != "panic: 42" {
		t.Fatalf("got %q", pe.Error())
	}
	if pe.Unwrap() != nil {
		t.Fatalf("expected nil unwrap for non-error value")
	}
}

func TestTruncate(t *testing.T) {
	if truncate("abc", 0) != "abc" || truncate("abc", 5) != "abc" {
		t.Fatalf("truncate should not change short strings")
	}
	if got := truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("truncate = %q", got)
	}
}
