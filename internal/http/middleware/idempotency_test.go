package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct{ user, scope, key string }

// confirmRouter mounts the validator in front of a confirm route that reports
// what the handler saw.
func confirmRouter(opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Identity(), IdempotencyValidator(opts, lookup))
	report := func(c *gin.Context) {
		key, ok := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "has": ok, "replay": IsReplay(c), "bypass": IsRateBypass(c)})
	}
	r.POST("/admin/:resource/gate/confirm", report)
	r.GET("/admin/:resource/gate", report)
	return r
}

func send(r http.Handler, method, path, key, user string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestIdempotencyValidator_HitMarksReplay(t *testing.T) {
	var calls []lookupCall
	lookup := func(_ context.Context, user, scope, key string, now time.Time) (bool, error) {
		if now.IsZero() || now.Location() != time.UTC {
			t.Errorf("now = %v, want UTC", now)
		}
		calls = append(calls, lookupCall{user, scope, key})
		return key == "confirm-42", nil
	}
	r := confirmRouter(IdempotencyOptions{}, lookup)

	_, hit := send(r, http.MethodPost, "/admin/pending-orders/gate/confirm", "confirm-42", "ops-9")
	if hit["replay"] != true || hit["bypass"] != true || hit["key"] != "confirm-42" {
		t.Fatalf("hit = %v", hit)
	}
	_, miss := send(r, http.MethodPost, "/admin/reviews/gate/confirm", "confirm-43", "")
	if miss["replay"] != false || miss["bypass"] != false || miss["has"] != true {
		t.Fatalf("miss = %v", miss)
	}

	want := []lookupCall{{"ops-9", "pending-orders", "confirm-42"}, {"demo-user", "reviews", "confirm-43"}}
	if len(calls) != len(want) {
		t.Fatalf("calls = %+v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestIdempotencyValidator_IgnoredWithoutKeyOrOnReads(t *testing.T) {
	called := 0
	lookup := func(context.Context, string, string, string, time.Time) (bool, error) {
		called++
		return true, nil
	}
	r := confirmRouter(IdempotencyOptions{}, lookup)

	if _, body := send(r, http.MethodPost, "/admin/reviews/gate/confirm", "", "u1"); body["has"] != false {
		t.Fatalf("no header: %v", body)
	}
	// Reads never carry confirmation semantics, even with a malformed key.
	if w, body := send(r, http.MethodGet, "/admin/reviews/gate", "not a key!", "u1"); w.Code != http.StatusOK || body["has"] != false {
		t.Fatalf("GET with key: %d %v", w.Code, body)
	}
	if called != 0 {
		t.Fatalf("lookup called %d times", called)
	}
}

func TestIdempotencyValidator_RejectsMalformedKeys(t *testing.T) {
	cases := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"too long", IdempotencyOptions{MaxLen: 5}, "abcdef"},
		{"default length", IdempotencyOptions{}, strings.Repeat("k", 201)},
		{"whitespace", IdempotencyOptions{}, "confirm 42"},
		{"custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, "abc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := confirmRouter(tc.opts, nil)
			w, body := send(r, http.MethodPost, "/admin/reviews/gate/confirm", tc.key, "u1")
			if w.Code != http.StatusBadRequest || body["code"] != "bad_idempotency_key" {
				t.Fatalf("got %d %v", w.Code, body)
			}
			if body["request_id"] == "" {
				t.Fatalf("envelope missing request id: %v", body)
			}
		})
	}

	r := confirmRouter(IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, nil)
	if w, body := send(r, http.MethodPost, "/admin/reviews/gate/confirm", "123", "u1"); w.Code != http.StatusOK || body["key"] != "123" {
		t.Fatalf("custom pattern accept: %d %v", w.Code, body)
	}
}

func TestIdempotencyValidator_LookupErrorIsAMiss(t *testing.T) {
	buf := withCapturedLogger(t)
	lookup := func(context.Context, string, string, string, time.Time) (bool, error) {
		return true, errors.New("database is locked")
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Identity(), RedactingLogger(RedactOptions{}), IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/admin/:resource/gate/confirm", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"replay": IsReplay(c)})
	})

	w, body := send(r, http.MethodPost, "/admin/reviews/gate/confirm", "confirm-1", "u1")
	if w.Code != http.StatusOK || body["replay"] != false {
		t.Fatalf("got %d %v", w.Code, body)
	}
	if !strings.Contains(buf.String(), "idempotency lookup failed") || !strings.Contains(buf.String(), "database is locked") {
		t.Fatalf("lookup error not logged: %s", buf.String())
	}
}

func TestIdempotencyAccessors_WrongTypes(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ctxKeyIdemKey, 123)
	c.Set(ctxKeyIdemReplay, "yes")
	if k, ok := GetIdempotencyKey(c); ok || k != "" {
		t.Fatalf("key = %q %v", k, ok)
	}
	if IsReplay(c) {
		t.Fatal("non-bool replay flag read as true")
	}
}
