package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vendorpulse/vendorpulse/internal/analytics"
	analytichttp "github.com/vendorpulse/vendorpulse/internal/analytics/http"
	"github.com/vendorpulse/vendorpulse/internal/app"
	"github.com/vendorpulse/vendorpulse/internal/auth"
	"github.com/vendorpulse/vendorpulse/internal/events"
	"github.com/vendorpulse/vendorpulse/internal/observability"
	"github.com/vendorpulse/vendorpulse/internal/platform/cache"
	"github.com/vendorpulse/vendorpulse/internal/store"
	"github.com/vendorpulse/vendorpulse/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	metrics := observability.NewMetrics()
	analyticsMetrics := analytics.NewMetrics(metrics.Registerer())

	healthChecks := map[string]app.HealthCheck{"store": backend.Ping}

	var cacheStore analytics.CacheStore = analytics.NopStore{}
	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, analytics caching disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		cacheStore = analytics.NewRedisStore(redisClient, logger)
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	analyticsCache := analytics.NewCache(cacheStore, cfg.CacheTTL,
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

	authService := auth.NewService(backend, auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn))
	authHandler := auth.NewHandler(logger, authService)
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService, authHandler.Middleware())

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	if cfg.KafkaEnabled() {
		consumer := events.NewConsumer(events.ConsumerConfig{
			Brokers: events.SplitBrokers(cfg.KafkaBrokers...),
			Topic:   cfg.OrderEventsTopic,
			GroupID: cfg.KafkaGroupID,
		}, analyticsService, logger)
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Warn("order events consumer close", slog.Any("error", err))
			}
		}()
		go func() {
			logger.Info("consuming order events", slog.String("topic", cfg.OrderEventsTopic))
			if err := consumer.Run(ctx); err != nil {
				logger.Error("order events consumer", slog.Any("error", err))
			}
		}()
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		AnalyticsHandler: analyticsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
		HealthChecks:     healthChecks,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", backend.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
