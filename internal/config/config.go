// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the storefront backend connection, list-view defaults, storage,
// audit/export sinks, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "adminview")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]

	Headers     map[string]string // OTEL_EXPORTER_OTLP_HEADERS "k=v,k2=v2", e.g. collector auth
	Environment string            // DEPLOYMENT_ENV, recorded as deployment.environment
}

// BackendConfig describes the storefront REST API.
type BackendConfig struct {
	BaseURL          string        // BACKEND_URL
	Token            string        // BACKEND_TOKEN (static bearer token)
	Timeout          time.Duration // BACKEND_TIMEOUT
	RateRPS          float64       // BACKEND_RATE_RPS, 0 = unlimited
	RateBurst        int           // BACKEND_RATE_BURST
	FetchAllPageSize int           // FETCH_ALL_PAGE_SIZE
}

// ListConfig holds list-view defaults.
type ListConfig struct {
	DefaultPageSize    int           // DEFAULT_PAGE_SIZE
	PageWindow         int           // PAGE_WINDOW
	SearchDebounce     time.Duration // SEARCH_DEBOUNCE
	CancelReasonMinLen int           // CANCEL_REASON_MIN_LEN
	BatchConcurrency   int           // BATCH_CONCURRENCY
	Locale             string        // LOCALE (BCP 47, drives collation)
	Timezone           string        // TIMEZONE (date-range days)
	SessionTTL         time.Duration // SESSION_TTL (idle list sessions are dropped)
}

// DBConfig selects the persistence backend.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	DSN    string // DB_DSN: file path for sqlite, URL/DSN for postgres
}

// KafkaConfig configures the audit sink. Disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers []string // KAFKA_BROKERS (comma separated)
	Topic   string   // KAFKA_AUDIT_TOPIC
}

// ArchiveConfig configures export archiving. Disabled when Bucket is empty.
type ArchiveConfig struct {
	Bucket       string // S3_BUCKET
	Prefix       string // S3_PREFIX
	Endpoint     string // AWS_ENDPOINT_URL (e.g. localstack)
	UsePathStyle bool   // S3_USE_PATH_STYLE
	QueueURL     string // SQS_ARCHIVE_QUEUE_URL, optional
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body limit
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	Backend BackendConfig
	List    ListConfig
	DB      DBConfig
	Kafka   KafkaConfig
	Archive ArchiveConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		Backend: BackendConfig{
			BaseURL:          strings.TrimRight(getenv("BACKEND_URL", "http://localhost:5000/api"), "/"),
			Token:            getenv("BACKEND_TOKEN", ""),
			Timeout:          getdur("BACKEND_TIMEOUT", 30*time.Second),
			RateRPS:          getfloat("BACKEND_RATE_RPS", 0),
			RateBurst:        getint("BACKEND_RATE_BURST", 10),
			FetchAllPageSize: getint("FETCH_ALL_PAGE_SIZE", 10000),
		},
		List: ListConfig{
			DefaultPageSize:    getint("DEFAULT_PAGE_SIZE", 25),
			PageWindow:         getint("PAGE_WINDOW", 5),
			SearchDebounce:     getdur("SEARCH_DEBOUNCE", 500*time.Millisecond),
			CancelReasonMinLen: getint("CANCEL_REASON_MIN_LEN", 10),
			BatchConcurrency:   getint("BATCH_CONCURRENCY", 4),
			Locale:             getenv("LOCALE", "en"),
			Timezone:           getenv("TIMEZONE", "UTC"),
			SessionTTL:         getdur("SESSION_TTL", 30*time.Minute),
		},
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DSN:    getenv("DB_DSN", "adminview.db"),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(getenv("KAFKA_BROKERS", "")),
			Topic:   getenv("KAFKA_AUDIT_TOPIC", "backoffice.audit"),
		},
		Archive: ArchiveConfig{
			Bucket:       getenv("S3_BUCKET", ""),
			Prefix:       getenv("S3_PREFIX", "exports"),
			Endpoint:     getenv("AWS_ENDPOINT_URL", ""),
			UsePathStyle: getbool("S3_USE_PATH_STYLE", false),
			QueueURL:     getenv("SQS_ARCHIVE_QUEUE_URL", ""),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 10.0),
		RateBurst: getint("RATE_BURST", 20),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "adminview"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
			Headers:     splitKV(getenv("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Environment: getenv("DEPLOYMENT_ENV", "development"),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	if !strings.HasPrefix(cfg.Backend.BaseURL, "http://") && !strings.HasPrefix(cfg.Backend.BaseURL, "https://") {
		return cfg, errors.New("BACKEND_URL must be an http(s) URL")
	}
	if cfg.Backend.Timeout <= 0 {
		return cfg, errors.New("BACKEND_TIMEOUT must be > 0")
	}
	if cfg.Backend.RateRPS < 0 {
		return cfg, errors.New("BACKEND_RATE_RPS must be >= 0")
	}
	if cfg.Backend.FetchAllPageSize < 1 {
		return cfg, errors.New("FETCH_ALL_PAGE_SIZE must be >= 1")
	}
	if cfg.List.DefaultPageSize < 1 || cfg.List.DefaultPageSize > 500 {
		return cfg, errors.New("DEFAULT_PAGE_SIZE must be between 1 and 500")
	}
	if cfg.List.PageWindow < 1 {
		return cfg, errors.New("PAGE_WINDOW must be >= 1")
	}
	if cfg.List.SearchDebounce < 0 {
		return cfg, errors.New("SEARCH_DEBOUNCE must be >= 0")
	}
	if cfg.List.CancelReasonMinLen < 1 {
		return cfg, errors.New("CANCEL_REASON_MIN_LEN must be >= 1")
	}
	if cfg.List.BatchConcurrency < 1 {
		return cfg, errors.New("BATCH_CONCURRENCY must be >= 1")
	}
	if cfg.List.SessionTTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if _, err := time.LoadLocation(cfg.List.Timezone); err != nil {
		return cfg, errors.New("TIMEZONE must be a valid IANA time zone")
	}
	switch cfg.DB.Driver {
	case "sqlite", "postgres":
	default:
		return cfg, errors.New("DB_DRIVER must be sqlite or postgres")
	}
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		return cfg, errors.New("DB_DSN must not be empty")
	}
	if len(cfg.Kafka.Brokers) > 0 && strings.TrimSpace(cfg.Kafka.Topic) == "" {
		return cfg, errors.New("KAFKA_AUDIT_TOPIC must not be empty when KAFKA_BROKERS is set")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitKV parses "k=v,k2=v2". Pairs without '=' or with an empty key are
// skipped.
func splitKV(s string) map[string]string {
	pairs := splitCSV(s)
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if k = strings.TrimSpace(k); ok && k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
