package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/vendorpulse/vendorpulse/internal/platform/httpx"
)

// CacheClearer drops a vendor's cached analytics.
type CacheClearer interface {
	ClearCache(ctx context.Context, vendorID string) error
}

// messageReader abstracts kafka.Reader for testability.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig configures the Kafka consumer group.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer clears analytics caches for vendors named in order events.
type Consumer struct {
	reader messageReader
	cache  CacheClearer
	logger *slog.Logger
}

// NewConsumer creates a consumer group reader for cfg.
func NewConsumer(cfg ConsumerConfig, cache CacheClearer, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return NewConsumerWith(reader, cache, logger)
}

// NewConsumerWith builds a Consumer over an existing reader.
func NewConsumerWith(reader messageReader, cache CacheClearer, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{reader: reader, cache: cache, logger: logger.With(slog.String("component", "order_events"))}
}

// Run consumes until ctx is cancelled. Malformed messages are committed and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("events: fetch: %w", err)
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("events: commit: %w", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	evt, err := decode(msg.Value)
	if err != nil {
		c.logger.Warn("skip malformed order event", slog.Int64("offset", msg.Offset), slog.Any("error", err))
		return
	}
	if !evt.Relevant() {
		return
	}
	for _, vendorID := range evt.VendorIDs {
		if err := c.cache.ClearCache(ctx, vendorID); err != nil {
			level := slog.LevelError
			if errors.Is(err, httpx.ErrValidation) {
				level = slog.LevelWarn
			}
			c.logger.Log(ctx, level, "clear vendor cache",
				slog.String("order_id", evt.OrderID),
				slog.String("vendor_id", vendorID),
				slog.Any("error", err))
		}
	}
}

// Close releases the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
