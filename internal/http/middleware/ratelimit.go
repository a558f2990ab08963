package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// BucketKey selects the token bucket a request draws from.
type BucketKey func(*gin.Context) string

// KeyByUserOrIP keys buckets by the caller resolved by Identity, falling back
// to the client IP. When the route carries a :resource param the key is
// narrowed to it, so a heavy export on one list does not starve another.
func KeyByUserOrIP() BucketKey {
	return func(c *gin.Context) string {
		key := "ip:" + c.ClientIP()
		if v, ok := c.Get(userIDKey); ok {
			if s, ok := v.(string); ok && s != "" {
				key = "user:" + s
			}
		}
		if res := c.Param("resource"); res != "" {
			key += "|" + res
		}
		return key
	}
}

// RequestCost reports how many tokens a request consumes. Values below 1
// count as 1.
type RequestCost func(*gin.Context) int

// ExportCost charges CSV exports n tokens and everything else one.
func ExportCost(n int) RequestCost {
	return func(c *gin.Context) int {
		if strings.HasSuffix(c.FullPath(), "/export.csv") {
			return n
		}
		return 1
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per key. Buckets idle for longer
// than ttl are swept every sweepEvery lookups. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	key   BucketKey
	cost  RequestCost
	now   func() time.Time

	mu         sync.Mutex
	buckets    map[string]*bucket
	ttl        time.Duration
	lookups    uint64
	sweepEvery uint64
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to burst.
// A burst <= 0 is treated as 1.
func NewRateLimiter(rps float64, burst int, key BucketKey) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		key:        key,
		cost:       func(*gin.Context) int { return 1 },
		now:        time.Now,
		buckets:    make(map[string]*bucket),
		ttl:        10 * time.Minute,
		sweepEvery: 5000,
	}
}

// WithCost installs a per-request cost function.
func (rl *RateLimiter) WithCost(cost RequestCost) *RateLimiter {
	if cost != nil {
		rl.cost = cost
	}
	return rl
}

// bucketFor returns the limiter for key. The sweep runs before the lookup so
// a stale bucket for key itself is dropped rather than refreshed.
func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= rl.sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay, which is served without spending tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limits. Rejected requests get 429 with the standard
// error envelope and a Retry-After derived from the bucket's refill time.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		n := rl.cost(c)
		if n < 1 {
			n = 1
		}
		if n > rl.burst {
			n = rl.burst
		}

		now := rl.now()
		res := rl.bucketFor(rl.key(c)).ReserveN(now, n)
		delay := res.DelayFrom(now)
		if res.OK() && delay == 0 {
			c.Next()
			return
		}
		res.CancelAt(now)

		c.Header("Retry-After", retryAfter(delay))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfter renders d as whole seconds, at least one.
func retryAfter(d time.Duration) string {
	if d == rate.InfDuration {
		return "1"
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
