package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "adminview"

	// unmatchedRoute labels requests no route matched, keeping 404 probes
	// from minting one series per URL.
	unmatchedRoute = "unmatched"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route, list resource and status.",
		},
		[]string{"method", "route", "resource", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "resource"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		},
	)

	// CSV exports dominate the upper buckets.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 10), // 256B..64MiB
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Metrics records Prometheus request metrics under the adminview namespace.
//
// The route label is the registered Gin pattern, or "unmatched". The resource
// label is the :resource path param when it names one of resources, and empty
// otherwise, so unknown resource names cannot grow the series count.
//
//	r.Use(middleware.Metrics(admin.Names()...))
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics(resources ...string) gin.HandlerFunc {
	known := make(map[string]struct{}, len(resources))
	for _, n := range resources {
		known[n] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		resource := c.Param("resource")
		if _, ok := known[resource]; !ok {
			resource = ""
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, route, resource, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, route, resource).Observe(time.Since(start).Seconds())
		// -1 means nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}
