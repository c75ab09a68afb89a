package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key prefixes for the cacheable views.
const (
	keyMonthlySales = "monthly_sales:"
	keyProductSales = "product_sales:"
	keyVendorStats  = "vendor_stats:"
)

const (
	// DefaultTTL bounds how stale a cached view may be.
	DefaultTTL = 300 * time.Second
	// DefaultWriteTimeout bounds a detached cache write.
	DefaultWriteTimeout = 2 * time.Second
)

// CacheKeys returns every cache key holding a view of vendorID.
func CacheKeys(vendorID string) []string {
	return []string{
		keyMonthlySales + vendorID,
		keyProductSales + vendorID,
		keyVendorStats + vendorID,
	}
}

// CacheStore is a byte-oriented TTL store. Implementations never fail: an
// unavailable backend behaves as a miss and writes become no-ops.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	Delete(ctx context.Context, keys ...string) bool
}

// RedisStore is a fail-open CacheStore over go-redis.
type RedisStore struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedisStore wraps client. A nil logger falls back to slog.Default.
func NewRedisStore(client redis.UniversalClient, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

// Get implements CacheStore.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if s == nil || s.client == nil {
		return nil, false
	}
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("analytics cache get failed", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	return payload, true
}

// Set implements CacheStore.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if s == nil || s.client == nil {
		return false
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Warn("analytics cache set failed", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return true
}

// Delete implements CacheStore.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) bool {
	if s == nil || s.client == nil || len(keys) == 0 {
		return false
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("analytics cache delete failed", slog.Any("keys", keys), slog.Any("error", err))
		return false
	}
	return true
}

// NopStore never stores anything.
type NopStore struct{}

// Get implements CacheStore.
func (NopStore) Get(context.Context, string) ([]byte, bool) { return nil, false }

// Set implements CacheStore.
func (NopStore) Set(context.Context, string, []byte, time.Duration) bool { return false }

// Delete implements CacheStore.
func (NopStore) Delete(context.Context, ...string) bool { return false }

// Cache layers JSON encoding, metrics and detached writes over a CacheStore.
type Cache struct {
	store        CacheStore
	ttl          time.Duration
	writeTimeout time.Duration
	metrics      *Metrics
	logger       *slog.Logger
	pending      sync.WaitGroup

	// generations counts deletes per key; a write loaded under an older
	// generation must not survive a delete.
	genMu       sync.Mutex
	generations map[string]uint64
}

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithCacheMetrics records hits and misses.
func WithCacheMetrics(m *Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// WithWriteTimeout bounds each background write.
func WithWriteTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithCacheLogger sets the logger used for encode failures.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache instantiates the cache helper. A nil store disables caching.
func NewCache(store CacheStore, ttl time.Duration, opts ...CacheOption) *Cache {
	if store == nil {
		store = NopStore{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		store:        store,
		ttl:          ttl,
		writeTimeout: DefaultWriteTimeout,
		logger:       slog.Default(),
		generations:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// FetchJSON decodes the cached value at key into dest or populates it using
// the loader. A cached payload that no longer decodes is treated as a miss.
// The population write happens in the background and its outcome is never
// reported to the caller.
func (c *Cache) FetchJSON(ctx context.Context, view, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c != nil {
		if payload, ok := c.store.Get(ctx, key); ok {
			if err := json.Unmarshal(payload, dest); err == nil {
				c.metrics.hit(view)
				return nil
			}
			c.logger.Warn("analytics cache entry undecodable", slog.String("key", key))
		}
		c.metrics.miss(view)
	}

	gen := c.generation(key)
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}
	if c != nil {
		c.setAsync(ctx, key, raw, gen)
	}
	return nil
}

// SetAsync stores raw under key without blocking the caller. The write uses
// a context detached from ctx's cancellation.
func (c *Cache) SetAsync(ctx context.Context, key string, raw []byte) {
	if c == nil {
		return
	}
	c.setAsync(ctx, key, raw, c.generation(key))
}

// setAsync writes raw only while key is still at generation gen. A delete
// that lands while the write is in flight is repaired by deleting again.
func (c *Cache) setAsync(ctx context.Context, key string, raw []byte, gen uint64) {
	detached := context.WithoutCancel(ctx)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if c.generation(key) != gen {
			return
		}
		writeCtx, cancel := context.WithTimeout(detached, c.writeTimeout)
		defer cancel()
		if !c.store.Set(writeCtx, key, raw, c.ttl) {
			return
		}
		if c.generation(key) != gen {
			c.store.Delete(writeCtx, key)
		}
	}()
}

// Delete removes keys. It reports whether the backend acknowledged the delete.
// Writes loaded before the delete are discarded.
func (c *Cache) Delete(ctx context.Context, keys ...string) bool {
	if c == nil {
		return false
	}
	c.genMu.Lock()
	if c.generations == nil {
		c.generations = make(map[string]uint64)
	}
	for _, key := range keys {
		c.generations[key]++
	}
	c.genMu.Unlock()
	return c.store.Delete(ctx, keys...)
}

func (c *Cache) generation(key string) uint64 {
	if c == nil {
		return 0
	}
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.generations[key]
}

// Wait blocks until every background write has finished.
func (c *Cache) Wait() {
	if c == nil {
		return
	}
	c.pending.Wait()
}
