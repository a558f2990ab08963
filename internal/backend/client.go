// Package backend is the client of the storefront REST API, the remote data
// source behind every backoffice list page.
//
// Every response uses the envelope {success, data, message}. Failures become
// *APIError values carrying the HTTP status and the backend's message. The
// client never retries: a failed call surfaces to the caller and prior state
// stays intact.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultFetchAllPageSize is the page size requested when a list page
	// fetches its whole collection.
	DefaultFetchAllPageSize = 10000

	maxResponseBytes = 32 << 20
)

var backendCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "backend_requests_total",
		Help: "Calls made to the storefront API by method and outcome.",
	},
	[]string{"method", "outcome"},
)

func init() {
	prometheus.MustRegister(backendCalls)
}

// Options configures a Client.
type Options struct {
	BaseURL          string
	Token            string
	Timeout          time.Duration
	RatePerSec       float64
	Burst            int
	FetchAllPageSize int
	HTTPClient       *http.Client
}

// Client talks to the storefront API.
type Client struct {
	base     *url.URL
	token    string
	hc       *http.Client
	limiter  *rate.Limiter
	pageSize int
}

// New validates opts and returns a client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	size := opts.FetchAllPageSize
	if size <= 0 {
		size = DefaultFetchAllPageSize
	}
	return &Client{base: u, token: opts.Token, hc: hc, limiter: lim, pageSize: size}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type listData[T any] struct {
	Items      []T  `json:"items"`
	TotalCount *int `json:"totalCount"`
}

// ListAll fetches a complete collection by requesting one very large page.
// params carries optional server-side pre-filters. The returned count is the
// backend's totalCount when it sent one.
func ListAll[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, *int, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("page", "1")
	q.Set("pageSize", strconv.Itoa(c.pageSize))

	var data listData[T]
	if err := c.do(ctx, http.MethodGet, path, q, nil, &data); err != nil {
		return nil, nil, err
	}
	if data.Items == nil {
		data.Items = []T{}
	}
	return data.Items, data.TotalCount, nil
}

// Get fetches a single resource into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, out)
}

// Mutate sends payload with method to path. out may be nil.
func (c *Client) Mutate(ctx context.Context, method, path string, payload, out any) error {
	return c.do(ctx, method, path, nil, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) (err error) {
	tr := otel.Tracer("backend/Client")
	ctx, span := tr.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("backend.path", path),
		),
	)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		backendCalls.WithLabelValues(method, outcome).Inc()
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: encode payload: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	u, err := c.endpoint(path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if uid := UserFrom(ctx); uid != "" {
		req.Header.Set("X-User-ID", uid)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("backend: read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		return fmt.Errorf("backend: decode response: %w", decodeErr)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("backend: decode data: %w", err)
		}
	}
	return nil
}

// endpoint appends the already-escaped path to the base URL verbatim. Dot
// segments are kept as sent, never resolved against the base.
func (c *Client) endpoint(path string) (*url.URL, error) {
	u := *c.base
	raw := strings.TrimRight(u.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	p, err := url.PathUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("backend: bad path %q: %w", path, err)
	}
	u.Path, u.RawPath = p, raw
	return &u, nil
}

type userKey struct{}

// WithUser makes calls under ctx carry userID to the backend.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom returns the user attached by WithUser.
func UserFrom(ctx context.Context) string {
	s, _ := ctx.Value(userKey{}).(string)
	return s
}

// APIError is a failed backend call.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %d %s", e.Status, http.StatusText(e.Status))
}

// SessionExpiredMessage is shown when the backend answers 401.
const SessionExpiredMessage = "Your session has expired. Please sign in again."

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// MessageOf derives the user-facing text for err: session-expired for 401,
// the backend's message when it sent one, fallback otherwise.
func MessageOf(err error, fallback string) string {
	var ae *APIError
	if !errors.As(err, &ae) {
		return fallback
	}
	if ae.Status == http.StatusUnauthorized {
		return SessionExpiredMessage
	}
	if strings.TrimSpace(ae.Message) != "" {
		return ae.Message
	}
	return fallback
}
