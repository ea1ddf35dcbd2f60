package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"pacwatch/internal/feed"
	"pacwatch/internal/notify"
	"pacwatch/internal/pipeline"
	"pacwatch/internal/platform/config"
	"pacwatch/internal/platform/postgres"
	redisplatform "pacwatch/internal/platform/redis"
	"pacwatch/internal/records/store"
	pstrings "pacwatch/pkg/platform/strings"
)

// Pipeline metrics register on the process-wide Prometheus registry, so
// they are created at most once no matter how often a pipeline is built.
var (
	metricsOnce sync.Once
	runMetrics  *pipeline.Metrics
)

func processMetrics() *pipeline.Metrics {
	metricsOnce.Do(func() {
		runMetrics = pipeline.NewMetrics()
	})
	return runMetrics
}

// buildPipeline assembles the full pipeline from configuration: feed client,
// ledger backend, notifier backend, and the run options. The returned cleanup
// closes whatever connections the backends opened.
func buildPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pipeline.Pipeline, func(), error) {
	source := feed.NewClient(feed.Config{
		Endpoint: cfg.Feed.Endpoint,
		APIKey:   cfg.Feed.APIKey,
		Attempts: cfg.Feed.Attempts,
		Delay:    cfg.Feed.Delay,
	}, feed.WithLogger(logger))

	ledger, closeLedger, err := buildLedger(ctx, cfg.Ledger)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger backend: %w", err)
	}

	notifier, closeNotifier, err := buildNotifier(cfg.Notifier, logger)
	if err != nil {
		closeLedger()
		return nil, nil, fmt.Errorf("notifier backend: %w", err)
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.Notifier.Retries, cfg.Notifier.Delay, logger)

	p, err := pipeline.New(source, ledger, dispatcher, pipeline.Options{
		MinReportAmount: cfg.Run.MinReportAmount,
		WindowDays:      cfg.Run.WindowDays,
		InterDispatch:   cfg.Run.InterDispatch,
		CharLimit:       cfg.Run.CharLimit,
		Send:            cfg.Run.Send,
		Record:          cfg.Run.Record,
		Cumulative:      cfg.Run.Cumulative,
	},
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(processMetrics()),
	)
	if err != nil {
		closeNotifier()
		closeLedger()
		return nil, nil, err
	}

	cleanup := func() {
		closeNotifier()
		closeLedger()
	}
	return p, cleanup, nil
}

// buildLedger constructs the configured record store.
func buildLedger(ctx context.Context, cfg config.Ledger) (pipeline.Ledger, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case "memory":
		return store.NewCSVStore(store.NewMemoryObjects()), noop, nil

	case "file":
		return store.NewCSVStore(store.NewFileObjects(cfg.Dir, cfg.Key)), noop, nil

	case "redis":
		client, err := redisplatform.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		objects := store.NewRedisObjects(client.Client, cfg.Bucket, cfg.Key)
		return store.NewCSVStore(objects), func() { _ = client.Close() }, nil

	case "s3":
		client, err := store.NewS3Client(cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Region, cfg.S3.UseSSL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewCSVStore(store.NewS3Objects(client, cfg.Bucket, cfg.Key)), noop, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pg, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// buildNotifier constructs the configured announcement channel.
func buildNotifier(cfg config.Notifier, logger *slog.Logger) (notify.Notifier, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case "statuses":
		client := notify.NewStatusClient(notify.StatusConfig{
			Endpoint: cfg.Statuses.Endpoint,
			Token:    cfg.Statuses.Token,
		})
		return client, noop, nil

	case "kafka":
		notifier, err := notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers: pstrings.DedupeAndTrim(cfg.Kafka.Brokers),
			Topic:   cfg.Kafka.Topic,
		})
		if err != nil {
			return nil, nil, err
		}
		return notifier, notifier.Close, nil

	case "log":
		return notify.NewLogNotifier(logger), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown notifier backend %q", cfg.Backend)
	}
}
