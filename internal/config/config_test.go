package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "API_BASE_PATH", "DB_DRIVER", "DB_DSN", "KAFKA_BROKERS", "S3_BUCKET", "OTEL_ENABLED"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.APIBasePath != "/api/v1" || cfg.Port != "8080" || cfg.GinMode != "release" {
		t.Fatalf("server defaults: base=%q port=%q gin=%q", cfg.APIBasePath, cfg.Port, cfg.GinMode)
	}
	wantList := ListConfig{
		DefaultPageSize:    25,
		PageWindow:         5,
		SearchDebounce:     500 * time.Millisecond,
		CancelReasonMinLen: 10,
		BatchConcurrency:   4,
		Locale:             "en",
		Timezone:           "UTC",
		SessionTTL:         30 * time.Minute,
	}
	if diff := cmp.Diff(wantList, cfg.List); diff != "" {
		t.Fatalf("list defaults (-want +got):\n%s", diff)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.DSN != "adminview.db" {
		t.Fatalf("db defaults: %+v", cfg.DB)
	}
	// Audit and archive sinks are opt-in.
	if len(cfg.Kafka.Brokers) != 0 || cfg.Archive.Bucket != "" || cfg.Archive.QueueURL != "" {
		t.Fatalf("sinks should be disabled: %+v %+v", cfg.Kafka, cfg.Archive)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.Headers != nil || cfg.OTEL.Environment != "development" {
		t.Fatalf("otel defaults: %+v", cfg.OTEL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	env := map[string]string{
		"PORT":                        "8088",
		"READ_TIMEOUT":                "2s",
		"GIN_MODE":                    "weird",
		"LOG_LEVEL":                   "warning",
		"LOG_PRETTY":                  "yes",
		"SWAGGER_ENABLED":             "on",
		"API_BASE_PATH":               "backoffice/",
		"BACKEND_URL":                 "https://shop.example.com/api/",
		"BACKEND_TOKEN":               "tok",
		"FETCH_ALL_PAGE_SIZE":         "2000",
		"DEFAULT_PAGE_SIZE":           "50",
		"SEARCH_DEBOUNCE":             "250ms",
		"CANCEL_REASON_MIN_LEN":       "12",
		"TIMEZONE":                    "Europe/Athens",
		"DB_DRIVER":                   "PostgreSQL",
		"DB_DSN":                      "postgres://u:p@db/backoffice",
		"KAFKA_BROKERS":               "k1:9092, k2:9092",
		"S3_BUCKET":                   "exports",
		"SQS_ARCHIVE_QUEUE_URL":       "https://sqs.eu-west-1.amazonaws.com/1/archived",
		"RATE_RPS":                    "x",
		"RATE_BURST":                  "nope",
		"CORS_ALLOWED_ORIGINS":        " https://ops.example.com , , http://localhost:5173 ",
		"ENABLE_HSTS":                 "TRUE",
		"IDEMPOTENCY_TTL":             "48h",
		"OTEL_ENABLED":                "1",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "otel:4317",
		"OTEL_EXPORTER_OTLP_INSECURE": "0",
		"OTEL_TRACES_SAMPLER_ARG":     "0.75",
		"OTEL_EXPORTER_OTLP_HEADERS":  "x-honeycomb-team=abc, dataset = backoffice ,broken",
		"DEPLOYMENT_ENV":              "staging",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	got := map[string]any{
		"port":       cfg.Port,
		"read":       cfg.ReadTimeout,
		"gin":        cfg.GinMode,
		"level":      cfg.LogLevel,
		"pretty":     cfg.LogPretty,
		"swagger":    cfg.SwaggerEnabled,
		"base":       cfg.APIBasePath,
		"backend":    cfg.Backend.BaseURL,
		"fetchAll":   cfg.Backend.FetchAllPageSize,
		"pageSize":   cfg.List.DefaultPageSize,
		"debounce":   cfg.List.SearchDebounce,
		"reasonMin":  cfg.List.CancelReasonMinLen,
		"tz":         cfg.List.Timezone,
		"driver":     cfg.DB.Driver,
		"brokers":    cfg.Kafka.Brokers,
		"topic":      cfg.Kafka.Topic,
		"bucket":     cfg.Archive.Bucket,
		"prefix":     cfg.Archive.Prefix,
		"queue":      cfg.Archive.QueueURL,
		"rps":        cfg.RateRPS,
		"burst":      cfg.RateBurst,
		"origins":    cfg.CORS.AllowedOrigins,
		"hsts":       cfg.Security.EnableHSTS,
		"idemTTL":    cfg.IdempotencyTTL,
		"otel":       cfg.OTEL.Enabled,
		"insecure":   cfg.OTEL.Insecure,
		"ratio":      cfg.OTEL.SampleRatio,
		"otlpHeader": cfg.OTEL.Headers,
		"env":        cfg.OTEL.Environment,
	}
	want := map[string]any{
		"port":       "8088",
		"read":       2 * time.Second,
		"gin":        "release",
		"level":      "warn",
		"pretty":     true,
		"swagger":    true,
		"base":       "/backoffice",
		"backend":    "https://shop.example.com/api",
		"fetchAll":   2000,
		"pageSize":   50,
		"debounce":   250 * time.Millisecond,
		"reasonMin":  12,
		"tz":         "Europe/Athens",
		"driver":     "postgres",
		"brokers":    []string{"k1:9092", "k2:9092"},
		"topic":      "backoffice.audit",
		"bucket":     "exports",
		"prefix":     "exports",
		"queue":      "https://sqs.eu-west-1.amazonaws.com/1/archived",
		"rps":        10.0, // unparsable values keep the defaults
		"burst":      20,
		"origins":    []string{"https://ops.example.com", "http://localhost:5173"},
		"hsts":       true,
		"idemTTL":    48 * time.Hour,
		"otel":       true,
		"insecure":   false,
		"ratio":      0.75,
		"otlpHeader": map[string]string{"x-honeycomb-team": "abc", "dataset": "backoffice"},
		"env":        "staging",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config (-want +got):\n%s", diff)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"blank port", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"zero timeout", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"body bytes", map[string]string{"MAX_BODY_BYTES": "0"}, "MAX_BODY_BYTES"},
		{"backend scheme", map[string]string{"BACKEND_URL": "ftp://shop"}, "BACKEND_URL"},
		{"backend timeout", map[string]string{"BACKEND_TIMEOUT": "0s"}, "BACKEND_TIMEOUT"},
		{"fetch-all size", map[string]string{"FETCH_ALL_PAGE_SIZE": "0"}, "FETCH_ALL_PAGE_SIZE"},
		{"page size", map[string]string{"DEFAULT_PAGE_SIZE": "501"}, "DEFAULT_PAGE_SIZE"},
		{"page window", map[string]string{"PAGE_WINDOW": "0"}, "PAGE_WINDOW"},
		{"reason length", map[string]string{"CANCEL_REASON_MIN_LEN": "0"}, "CANCEL_REASON_MIN_LEN"},
		{"batch workers", map[string]string{"BATCH_CONCURRENCY": "0"}, "BATCH_CONCURRENCY"},
		{"timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
		{"db driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"db dsn", map[string]string{"DB_DSN": "   "}, "DB_DSN"},
		{"kafka topic", map[string]string{"KAFKA_BROKERS": "k:9092", "KAFKA_AUDIT_TOPIC": " "}, "KAFKA_AUDIT_TOPIC"},
		{"rate rps", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts age", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency ttl", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestMustLoad(t *testing.T) {
	if cfg := MustLoad(); cfg.APIBasePath == "" {
		t.Fatal("MustLoad returned an empty config")
	}

	t.Setenv("DB_DRIVER", "oracle")
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad should panic on an invalid config")
		}
	}()
	MustLoad()
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	t.Setenv("X_PAGE", "42")
	t.Setenv("X_BAD", "forty")
	t.Setenv("X_RATIO", "0.5")
	t.Setenv("X_WAIT", "150ms")

	if getenv("X_EMPTY", "d") != "d" || getenv("X_PAGE", "d") != "42" {
		t.Error("getenv")
	}
	if getint("X_PAGE", 0) != 42 || getint("X_BAD", 7) != 7 {
		t.Error("getint")
	}
	if getfloat("X_RATIO", 0) != 0.5 || getfloat("X_BAD", 1.25) != 1.25 {
		t.Error("getfloat")
	}
	if getdur("X_WAIT", time.Second) != 150*time.Millisecond || getdur("X_BAD", 2*time.Second) != 2*time.Second {
		t.Error("getdur")
	}

	for _, v := range []string{"1", "TRUE", " yes ", "Y", "On"} {
		t.Setenv("X_FLAG", v)
		if !getbool("X_FLAG", false) {
			t.Errorf("getbool(%q) = false", v)
		}
	}
	for _, v := range []string{"0", "false", " no ", "N", "off"} {
		t.Setenv("X_FLAG", v)
		if getbool("X_FLAG", true) {
			t.Errorf("getbool(%q) = true", v)
		}
	}
	if !getbool("X_EMPTY", true) {
		t.Error("getbool default")
	}
}

func TestListParsers(t *testing.T) {
	if splitCSV("") != nil {
		t.Error("splitCSV empty should be nil")
	}
	if diff := cmp.Diff([]string{"reviews", "orders", "users"}, splitCSV(" reviews, ,orders ,  users  ,")); diff != "" {
		t.Errorf("splitCSV (-want +got):\n%s", diff)
	}

	if splitKV("") != nil || len(splitKV("novalue,=x")) != 0 {
		t.Error("splitKV should skip malformed pairs")
	}
	if diff := cmp.Diff(map[string]string{"authorization": "Bearer t", "tenant": ""}, splitKV("authorization=Bearer t, tenant=")); diff != "" {
		t.Errorf("splitKV (-want +got):\n%s", diff)
	}

	for in, want := range map[string]string{"": "/", "v1": "/v1", "/v1/": "/v1", " / ": "/"} {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
