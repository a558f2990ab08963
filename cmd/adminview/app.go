package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-backoffice/internal/audit"
	"github.com/tbourn/go-backoffice/internal/backend"
	"github.com/tbourn/go-backoffice/internal/config"
	"github.com/tbourn/go-backoffice/internal/export"
	"github.com/tbourn/go-backoffice/internal/gate"
	"github.com/tbourn/go-backoffice/internal/http/handlers"
	"github.com/tbourn/go-backoffice/internal/listview"
	"github.com/tbourn/go-backoffice/internal/observability"
	"github.com/tbourn/go-backoffice/internal/repo"
	"github.com/tbourn/go-backoffice/internal/services"
	"github.com/tbourn/go-backoffice/internal/sysutil"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	db       *gorm.DB
	client   *backend.Client
	admin    *services.AdminService
	cart     *services.CartService
	archiver handlers.Archiver
	sink     audit.Sink
}

// loadConfig reads the environment and installs the process logger.
func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, log.Logger, fmt.Errorf("config: %w", err)
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	lg := sysutil.NewLogger(os.Stderr, cfg.LogPretty, sysutil.FirstNonEmpty(cfg.OTEL.ServiceName, "adminview"), version)
	log.Logger = lg
	return cfg, lg, nil
}

// newApp opens storage and builds the storefront client, list pages, cart
// flow, audit sink and export archiver.
func newApp(ctx context.Context, cfg config.Config, lg zerolog.Logger) (*app, error) {
	db, err := repo.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DB.Driver, err)
	}

	client, err := backend.New(backend.Options{
		BaseURL:          cfg.Backend.BaseURL,
		Token:            cfg.Backend.Token,
		Timeout:          cfg.Backend.Timeout,
		RatePerSec:       cfg.Backend.RateRPS,
		Burst:            cfg.Backend.RateBurst,
		FetchAllPageSize: cfg.Backend.FetchAllPageSize,
		HTTPClient:       observability.NewHTTPClient(cfg.Backend.Timeout),
	})
	if err != nil {
		return nil, err
	}

	tag, err := language.Parse(cfg.List.Locale)
	if err != nil {
		return nil, fmt.Errorf("LOCALE: %w", err)
	}
	loc, err := time.LoadLocation(cfg.List.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	var sink audit.Sink = audit.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		sink = audit.NewKafkaSink(audit.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), 5*time.Second)
		lg.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("audit to kafka")
	}
	sink = audit.Logged{Sink: sink, Log: lg}

	a := &app{cfg: cfg, log: lg, db: db, client: client, sink: sink}

	if cfg.Archive.Bucket != "" {
		s3c, sqsc, err := export.NewAWSClients(ctx, export.AWSOptions{
			Endpoint:     cfg.Archive.Endpoint,
			UsePathStyle: cfg.Archive.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		arch := &export.Archiver{S3: s3c, Bucket: cfg.Archive.Bucket, Prefix: cfg.Archive.Prefix}
		if cfg.Archive.QueueURL != "" {
			arch.SQS, arch.QueueURL = sqsc, cfg.Archive.QueueURL
		}
		a.archiver = arch
	}

	deps := services.Deps{
		Client: client,
		DB:     db,
		Gate:   gate.New(&repo.PendingActionStore{DB: db}),
		Audit:  sink,
		Log:    lg,
		Settings: services.Settings{
			PageSize:       cfg.List.DefaultPageSize,
			Debounce:       cfg.List.SearchDebounce,
			BatchLimit:     cfg.List.BatchConcurrency,
			SessionTTL:     cfg.List.SessionTTL,
			IdempotencyTTL: cfg.IdempotencyTTL,
		},
	}
	a.admin = services.NewAdminService(services.BuildResources(deps, cfg.List.CancelReasonMinLen,
		listview.WithLanguage(tag),
		listview.WithLocation(loc),
		listview.WithWindow(cfg.List.PageWindow),
	)...)
	a.cart = services.NewCartService(client, lg)
	return a, nil
}

// Close stops list sessions and flushes the audit sink.
func (a *app) Close() {
	a.admin.Close()
	if err := a.sink.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close audit sink")
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
