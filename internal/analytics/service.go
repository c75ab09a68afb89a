package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
	"github.com/vendorpulse/vendorpulse/internal/platform/httpx"
)

var (
	// ErrVendorRequired indicates a blank vendor id.
	ErrVendorRequired = fmt.Errorf("%w: vendor id is required", httpx.ErrValidation)
	// ErrInvalidVendorID indicates an id the store cannot address.
	ErrInvalidVendorID = fmt.Errorf("%w: invalid vendor id", httpx.ErrValidation)
	// ErrInvalidDate indicates a malformed date-range bound.
	ErrInvalidDate = fmt.Errorf("%w: invalid date", httpx.ErrValidation)
)

// ProductCounter counts a vendor's catalog products.
type ProductCounter interface {
	CountProducts(ctx context.Context, vendorID string) (int64, error)
}

// Service computes vendor sales analytics over a pipeline runner, caching
// the monthly, product and summary views.
type Service struct {
	runner   pipeline.Runner
	catalog  ProductCounter
	cache    *Cache
	logger   *slog.Logger
	metrics  *Metrics
	months   MonthNames
	validate catalog.IDValidator
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocale selects the month label table.
func WithLocale(locale string) Option {
	return func(s *Service) { s.months = MonthNamesFor(locale) }
}

// WithIDValidator rejects vendor ids the backing store cannot address.
func WithIDValidator(v catalog.IDValidator) Option {
	return func(s *Service) { s.validate = v }
}

// WithMetrics records pipeline latency.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires a runner, product counter and cache. A nil cache disables caching.
func NewService(runner pipeline.Runner, catalog ProductCounter, cache *Cache, opts ...Option) *Service {
	s := &Service{
		runner:  runner,
		catalog: catalog,
		cache:   cache,
		logger:  slog.Default(),
		months:  MonthNamesFor("tr"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateVendorID applies the service's vendor id rules.
func (s *Service) ValidateVendorID(vendorID string) error {
	if strings.TrimSpace(vendorID) == "" {
		return ErrVendorRequired
	}
	if s.validate != nil {
		if err := s.validate(vendorID); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidVendorID, vendorID)
		}
	}
	return nil
}

func (s *Service) run(ctx context.Context, p pipeline.Pipeline) ([]pipeline.Bucket, error) {
	start := time.Now()
	buckets, err := s.runner.Run(ctx, p)
	s.metrics.observePipeline(p.Name, start, err)
	return buckets, err
}

// ClearCache removes the vendor's cached views. Cache failures are ignored.
func (s *Service) ClearCache(ctx context.Context, vendorID string) error {
	if err := s.ValidateVendorID(vendorID); err != nil {
		return err
	}
	if s.cache != nil && s.cache.Delete(ctx, CacheKeys(vendorID)...) {
		s.logger.Debug("analytics cache cleared", slog.String("vendor_id", vendorID))
	}
	return nil
}

// WarmVendor recomputes the three cached views for vendorID.
func (s *Service) WarmVendor(ctx context.Context, vendorID string) error {
	if err := s.ClearCache(ctx, vendorID); err != nil {
		return err
	}
	_, err := s.GetVendorStats(ctx, vendorID)
	return err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("analytics: %s: %w", op, err)
}
