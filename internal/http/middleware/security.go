package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// apiCSP forbids every subresource. Admin responses are JSON or CSV
// downloads and are never rendered as documents.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityOptions tunes SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests. Only turn
	// it on when the proxy-to-app hop is HTTPS as well.
	EnableHSTS bool
	HSTSMaxAge time.Duration // defaults to 180 days

	NoStore      bool // Cache-Control: no-store, for responses carrying customer data
	EnablePolicy bool // Permissions-Policy, CSP and cross-domain policy

	// Expose lists response headers browser clients may read, in addition
	// to X-Request-ID.
	Expose []string
}

// SecurityHeaders hardens the admin API's JSON and CSV responses.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 180 * 24 * time.Hour
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"
	expose := append([]string{requestIDHeader}, opt.Expose...)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Content-Security-Policy", apiCSP)
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		exposeHeaders(h, expose)

		c.Next()
	}
}

// isHTTPS reports whether the client reached us over TLS, directly or via a
// proxy setting X-Forwarded-Proto or the RFC 7239 Forwarded header.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	for _, elem := range strings.Split(r.Header.Get("Forwarded"), ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(elem), "=")
		if ok && strings.EqualFold(k, "proto") && strings.EqualFold(strings.Trim(v, `"`), "https") {
			return true
		}
	}
	return false
}

// exposeHeaders merges names into Access-Control-Expose-Headers, keeping
// whatever CORS already put there and skipping case-insensitive duplicates.
func exposeHeaders(h http.Header, names []string) {
	const hdr = "Access-Control-Expose-Headers"
	var list []string
	seen := map[string]struct{}{}
	add := func(n string) {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if _, dup := seen[key]; n == "" || dup {
			return
		}
		seen[key] = struct{}{}
		list = append(list, n)
	}
	for _, n := range strings.Split(h.Get(hdr), ",") {
		add(n)
	}
	for _, n := range names {
		add(n)
	}
	if len(list) > 0 {
		h.Set(hdr, strings.Join(list, ", "))
	}
}
