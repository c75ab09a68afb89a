package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/vendorpulse/vendorpulse/internal/jobs"
	"github.com/vendorpulse/vendorpulse/internal/platform/httpx"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AnalyticsCache is the part of the analytics service the jobs drive.
type AnalyticsCache interface {
	WarmVendor(ctx context.Context, vendorID string) error
	ClearCache(ctx context.Context, vendorID string) error
}

// VendorLister enumerates every vendor id.
type VendorLister interface {
	ListVendorIDs(ctx context.Context) ([]string, error)
}

// AnalyticsWarmupJob pre-populates the monthly, product and stats caches.
type AnalyticsWarmupJob struct {
	Analytics   AnalyticsCache
	Vendors     VendorLister
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
	Timeout     time.Duration
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(analyticsSvc AnalyticsCache, vendors VendorLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{
		Analytics:   analyticsSvc,
		Vendors:     vendors,
		Logger:      logger,
		Metrics:     metrics,
		Concurrency: 4,
		Timeout:     20 * time.Second,
	}
}

// Handle processes analytics warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("analytics warmup: decode payload: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	vendorIDs := compact(payload.VendorIDs)
	if len(vendorIDs) == 0 {
		if j.Vendors == nil {
			return errors.New("analytics warmup: vendor lister not configured")
		}
		ids, err := j.Vendors.ListVendorIDs(ctx)
		if err != nil {
			logger.Error("load warmup vendors", slog.Any("error", err))
			return err
		}
		vendorIDs = ids
	}
	if len(vendorIDs) == 0 {
		logger.Info("no vendors discovered for warmup")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency())
	for _, vendorID := range vendorIDs {
		vendorID := vendorID
		g.Go(func() error {
			vctx, cancel := context.WithTimeout(gctx, j.timeout())
			defer cancel()
			if err := j.Analytics.WarmVendor(vctx, vendorID); err != nil {
				logger.Error("warm vendor", slog.String("vendor_id", vendorID), slog.Any("error", err))
				return fmt.Errorf("analytics warmup: vendor %s: %w", vendorID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	j.metrics().AddWarmed(len(vendorIDs))
	logger.Info("completed analytics warmup", slog.Int("vendors", len(vendorIDs)), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *AnalyticsWarmupJob) concurrency() int {
	if j.Concurrency > 0 {
		return j.Concurrency
	}
	return 1
}

func (j *AnalyticsWarmupJob) timeout() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return 20 * time.Second
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// CacheClearJob drops one vendor's cached views.
type CacheClearJob struct {
	Analytics AnalyticsCache
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes cache clear tasks.
func (j *CacheClearJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics cache clear: handler not configured")
	}
	var payload CacheClearPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.VendorID == "" {
		return fmt.Errorf("analytics cache clear: invalid payload: %w", asynq.SkipRetry)
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskAnalyticsCacheClear)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	if err := j.Analytics.ClearCache(ctx, payload.VendorID); err != nil {
		if errors.Is(err, httpx.ErrValidation) {
			return fmt.Errorf("analytics cache clear: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("analytics cache clear: %w", err)
	}
	if j.Logger != nil {
		j.Logger.Debug("analytics cache cleared by job", slog.String("vendor_id", payload.VendorID))
	}
	return nil
}
