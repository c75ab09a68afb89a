// Package events consumes order change notifications from Kafka and keeps the
// analytics cache in step with them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Event types carried on the order topic.
const (
	TypeOrderPaid    = "order.paid"
	TypeOrderUpdated = "order.updated"
)

// OrderEvent announces that an order affecting VendorIDs changed.
type OrderEvent struct {
	Type      string   `json:"type"`
	OrderID   string   `json:"orderId"`
	VendorIDs []string `json:"vendorIds"`
}

// Relevant reports whether the event should invalidate cached analytics.
func (e OrderEvent) Relevant() bool {
	switch e.Type {
	case TypeOrderPaid, TypeOrderUpdated:
		return len(e.VendorIDs) > 0
	}
	return false
}

func decode(value []byte) (OrderEvent, error) {
	var evt OrderEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return OrderEvent{}, fmt.Errorf("events: decode: %w", err)
	}
	return evt, nil
}

// SplitBrokers parses a comma-separated broker list.
func SplitBrokers(raw ...string) []string {
	var brokers []string
	for _, entry := range raw {
		for _, a := range strings.Split(entry, ",") {
			if a = strings.TrimSpace(a); a != "" {
				brokers = append(brokers, a)
			}
		}
	}
	return brokers
}

// messageWriter abstracts kafka.Writer for testability.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes order events keyed by order id.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a Kafka publisher for topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}
}

// NewPublisherWith is only for tests to inject a fake writer.
func NewPublisherWith(w messageWriter) *Publisher {
	return &Publisher{writer: w}
}

// Publish writes evt.
func (p *Publisher) Publish(ctx context.Context, evt OrderEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(evt.OrderID), Value: b}); err != nil {
		return fmt.Errorf("events: publish %s: %w", evt.OrderID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
