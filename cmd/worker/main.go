package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vendorpulse/vendorpulse/internal/analytics"
	"github.com/vendorpulse/vendorpulse/internal/app"
	jobmetrics "github.com/vendorpulse/vendorpulse/internal/jobs"
	"github.com/vendorpulse/vendorpulse/internal/platform/cache"
	"github.com/vendorpulse/vendorpulse/internal/store"
	"github.com/vendorpulse/vendorpulse/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	backend, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logger.Error("open store", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(context.Background()); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

	// The worker is pointless without Redis: asynq needs it too.
	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	analyticsMetrics := analytics.NewMetrics(prometheus.DefaultRegisterer)
	analyticsCache := analytics.NewCache(analytics.NewRedisStore(redisClient, logger), cfg.CacheTTL,
		analytics.WithWriteTimeout(cfg.CacheWriteTimeout),
		analytics.WithCacheMetrics(analyticsMetrics),
		analytics.WithCacheLogger(logger),
	)
	defer analyticsCache.Wait()

	analyticsService := analytics.NewService(backend, backend, analyticsCache,
		analytics.WithLocale(cfg.AnalyticsLocale),
		analytics.WithIDValidator(backend.ValidateID),
		analytics.WithLogger(logger),
		analytics.WithMetrics(analyticsMetrics),
	)

	warmupJob := jobs.NewAnalyticsWarmupJob(analyticsService, backend, logger, metrics)
	clearJob := &jobs.CacheClearJob{Analytics: analyticsService, Logger: logger, Metrics: metrics}

	warmupTask, err := jobs.NewWarmupTask()
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAnalyticsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskAnalyticsCacheClear, Handler: clearJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AnalyticsWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("store", backend.Driver), slog.String("warmup_cron", cfg.AnalyticsWarmupCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
