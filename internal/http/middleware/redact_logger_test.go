package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf) // plain JSON lines
	return &buf
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RequestID(), Identity())
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/admin/:resource", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	q := "email=a.b+tag@example.com&phone=+1-555-123-4567&id=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/admin/customers?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567")
	req.Header.Set("X-Request-ID", "rid-req")
	req.Header.Set(HeaderUserID, "ops-3")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	for _, want := range []string{
		`"level":"info"`,
		`"path":"/admin/:resource"`,
		`"request_id":"rid-req"`,
		`"user_id":"ops-3"`,
		`"resource":"customers"`,
		`[REDACTED:email]`,
		`[REDACTED:phone]`,
		`[REDACTED:id]`,
		`"Authorization":"[REDACTED]"`,
		`"Cookie":"[REDACTED]"`,
		`"X-Api-Key":"[REDACTED]"`,
		`"X-Custom":"email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]"`,
	} {
		if !strings.Contains(logs, want) {
			t.Errorf("log missing %s\n%s", want, logs)
		}
	}
}

func TestRedactingLogger_LevelsAndHeaderFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	// No RequestID in the chain: the inbound header is logged.
	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/handler-error", func(c *gin.Context) {
		_ = c.Error(errors.New("backend down"))
		c.Status(http.StatusConflict)
	})

	for _, p := range []string{"/warn", "/error", "/handler-error"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.Header.Set("X-Request-ID", "rid"+strings.ReplaceAll(p, "/", "-"))
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 log lines, got %d:\n%s", len(lines), buf.String())
	}
	checks := []struct{ level, rid string }{
		{"warn", "rid-warn"},
		{"error", "rid-error"},
		{"error", "rid-handler-error"},
	}
	for i, ck := range checks {
		if !strings.Contains(lines[i], `"level":"`+ck.level+`"`) || !strings.Contains(lines[i], `"request_id":"`+ck.rid+`"`) {
			t.Errorf("line %d = %s, want level %s rid %s", i, lines[i], ck.level, ck.rid)
		}
	}
	if !strings.Contains(lines[2], `"errors":`) || !strings.Contains(lines[2], "backend down") {
		t.Errorf("handler error not logged: %s", lines[2])
	}
}

func TestRedactingLogger_AttachesScopedLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RequestID(), Identity(), RedactingLogger(RedactOptions{}))
	r.POST("/admin/:resource/gate", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("gate opened")
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/reviews/gate", nil)
	req.Header.Set("X-Request-ID", "rid-gate")
	req.Header.Set(HeaderUserID, "ops-9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "gate opened") {
			line = l
		}
	}
	for _, want := range []string{`"request_id":"rid-gate"`, `"user_id":"ops-9"`, `"resource":"reviews"`} {
		if !strings.Contains(line, want) {
			t.Errorf("handler log missing %s: %q", want, line)
		}
	}
}

func TestRedactingLogger_TruncatesLongQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/admin/:resource", func(c *gin.Context) { c.Status(http.StatusOK) })

	long := "page=1&sort=" + strings.Repeat("x", maxQueryLogLength)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/reviews?"+long, nil))
	if !strings.Contains(buf.String(), "…") {
		t.Fatalf("expected truncated query: %s", buf.String())
	}
}

func TestRedactingLogger_MasksNamedQueryParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	buf := withCapturedLogger(t)

	r.Use(RedactingLogger(RedactOptions{MaskQuery: []string{"search"}}))
	r.GET("/admin/:resource", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin/customers?page=2&search=Jane%20Doe&pageSize=10", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	if strings.Contains(logs, "Jane") {
		t.Fatalf("search term leaked: %s", logs)
	}
	if !strings.Contains(logs, `"query":"page=2&search=[REDACTED]&pageSize=10"`) {
		t.Fatalf("unexpected query field: %s", logs)
	}
}

func TestMaskParams_NoNames(t *testing.T) {
	if got := maskParams("a=1&b=2", nil); got != "a=1&b=2" {
		t.Fatalf("expected unchanged query, got %q", got)
	}
}
