// Package main wires together the podcast digest service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/podcast-digest/internal/catalog"
	"github.com/JakeFAU/podcast-digest/internal/clock/system"
	"github.com/JakeFAU/podcast-digest/internal/config"
	"github.com/JakeFAU/podcast-digest/internal/feed"
	"github.com/JakeFAU/podcast-digest/internal/id/uuid"
	"github.com/JakeFAU/podcast-digest/internal/ledger"
	pgledger "github.com/JakeFAU/podcast-digest/internal/ledger/postgres"
	"github.com/JakeFAU/podcast-digest/internal/logging"
	"github.com/JakeFAU/podcast-digest/internal/metrics"
	"github.com/JakeFAU/podcast-digest/internal/podcast"
	"github.com/JakeFAU/podcast-digest/internal/processor"
	pubsubpublisher "github.com/JakeFAU/podcast-digest/internal/publisher/pubsub"
	"github.com/JakeFAU/podcast-digest/internal/sheets"
	gcsstore "github.com/JakeFAU/podcast-digest/internal/storage/gcs"
	"github.com/JakeFAU/podcast-digest/internal/storage/local"
	memstore "github.com/JakeFAU/podcast-digest/internal/storage/memory"
	"github.com/JakeFAU/podcast-digest/internal/submission"
	"github.com/JakeFAU/podcast-digest/internal/syncer"
	"github.com/JakeFAU/podcast-digest/internal/telemetry"
	"github.com/JakeFAU/podcast-digest/internal/web"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
		stop()
		_ = logger.Sync() //nolint:errcheck // exiting
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	metrics.Init()
	tp, err := telemetry.InitTracerProvider(ctx, logging.Service)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	clock := system.New()
	ids := uuid.New()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rows, appender, err := newSheets(ctx, cfg, clock, logger)
	if err != nil {
		return err
	}

	proc, err := processor.NewClient(processor.Config{
		Endpoint:  cfg.Processor.Endpoint,
		App:       cfg.Processor.App,
		Function:  cfg.Processor.Function,
		LocalPath: cfg.Processor.LocalPath,
		Token:     cfg.Processor.Token,
		Timeout:   cfg.ProcessorTimeout(),
	})
	if err != nil {
		return fmt.Errorf("processor client: %w", err)
	}

	var checker podcast.FeedChecker
	if cfg.Feed.Precheck {
		checker = feed.NewChecker(&http.Client{Timeout: cfg.FeedTimeout()}, cfg.Feed.UserAgent)
	}

	var namer submission.Namer = submission.SequentialNamer{Store: store, Rows: rows}
	if cfg.Store.Naming == "uuid" {
		namer = submission.UUIDNamer{Store: store, IDs: ids}
	}

	subLedger, closeLedger, err := newLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	notifier, closeNotifier, err := newNotifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	submitter, err := submission.New(submission.Deps{
		Processor: proc,
		Namer:     namer,
		Appender:  appender,
		Checker:   checker,
		Cache:     rows,
		Ledger:    subLedger,
		Notifier:  notifier,
		Clock:     clock,
		IDs:       ids,
		Logger:    logging.Component(logger, "submit"),
	})
	if err != nil {
		return fmt.Errorf("submission service: %w", err)
	}

	server := web.NewServer(web.Deps{
		Syncer:    syncer.New(rows, store, logging.Component(logger, "sync")),
		Catalog:   catalog.NewLoader(store, logging.Component(logger, "catalog")),
		Submitter: submitter,
		Ledger:    subLedger,
		Ready: func(ctx context.Context) error {
			_, err := store.List(ctx)
			return err
		},
		RequestTimeout: cfg.RequestTimeout(),
	}, logging.Component(logger, "web"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started",
			zap.Int("port", cfg.Server.Port),
			zap.String("store_backend", cfg.Store.Backend),
			zap.String("csv_export", rows.ExportURL()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func newStore(ctx context.Context, cfg config.Config) (podcast.Store, func(), error) {
	switch cfg.Store.Backend {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("storage client: %w", err)
		}
		store, err := gcsstore.New(client, gcsstore.Config{
			Bucket: cfg.Store.GCS.Bucket,
			Prefix: cfg.Store.GCS.Prefix,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("gcs store: %w", err)
		}
		return store, func() { _ = client.Close() }, nil
	case "memory":
		return memstore.NewStore(), func() {}, nil
	default:
		store, err := local.New(local.Config{Dir: cfg.Store.Dir})
		if err != nil {
			return nil, nil, fmt.Errorf("local store: %w", err)
		}
		return store, func() {}, nil
	}
}

func newSheets(
	ctx context.Context,
	cfg config.Config,
	clock podcast.Clock,
	logger *zap.Logger,
) (*sheets.CSVSource, *sheets.Appender, error) {
	creds, err := cfg.SheetsCredentials()
	if err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{Timeout: cfg.SheetsTimeout()}
	if cfg.Sheets.AuthorizedExport {
		httpClient, err = sheets.AuthorizedClient(ctx, creds)
		if err != nil {
			return nil, nil, err
		}
		httpClient.Timeout = cfg.SheetsTimeout()
	}
	rows, err := sheets.NewCSVSource(
		sheets.CSVConfig{SheetURL: cfg.Sheets.URL, CacheTTL: cfg.CacheTTL()},
		sheets.WithHTTPClient(httpClient),
		sheets.WithClock(clock),
		sheets.WithLogger(logging.Component(logger, "sheets")),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("csv source: %w", err)
	}

	svc, err := sheets.NewService(ctx, creds)
	if err != nil {
		return nil, nil, err
	}
	appender, err := sheets.NewAppender(svc, sheets.AppenderConfig{
		SheetURL:  cfg.Sheets.URL,
		Worksheet: cfg.Sheets.Worksheet,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("sheets appender: %w", err)
	}
	return rows, appender, nil
}

func newLedger(ctx context.Context, cfg config.Config) (podcast.Ledger, func(), error) {
	if cfg.DB.DSN == "" {
		return ledger.NoOp{}, func() {}, nil
	}
	l, err := pgledger.New(ctx, pgledger.Config{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: int32(cfg.DB.MaxConns), //nolint:gosec // bounded by config validation
	})
	if err != nil {
		return nil, nil, err
	}
	if err := l.EnsureSchema(ctx); err != nil {
		l.Close()
		return nil, nil, err
	}
	return l, l.Close, nil
}

func newNotifier(ctx context.Context, cfg config.Config) (podcast.Notifier, func(), error) {
	if cfg.PubSub.TopicName == "" {
		return nil, func() {}, nil
	}
	client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	pub, err := pubsubpublisher.New(client, cfg.PubSub.TopicName)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return pub, func() {
		pub.Stop()
		_ = client.Close()
	}, nil
}
