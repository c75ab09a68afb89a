package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpulse/vendorpulse/internal/platform/httpx"

	_ "github.com/vendorpulse/vendorpulse/internal/testing/guard"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

type recordingClearer struct {
	cleared []string
}

func (r *recordingClearer) ClearCache(_ context.Context, vendorID string) error {
	if vendorID == "bad id" {
		return fmt.Errorf("%w: invalid vendor id", httpx.ErrValidation)
	}
	r.cleared = append(r.cleared, vendorID)
	return nil
}

func message(t *testing.T, offset int64, evt OrderEvent) kafka.Message {
	t.Helper()
	b, err := json.Marshal(evt)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func TestConsumerClearsVendorCaches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		message(t, 1, OrderEvent{Type: TypeOrderPaid, OrderID: "o1", VendorIDs: []string{"v1", "v2"}}),
		{Offset: 2, Value: []byte("not json")},
		message(t, 3, OrderEvent{Type: "order.viewed", OrderID: "o2", VendorIDs: []string{"v3"}}),
		message(t, 4, OrderEvent{Type: TypeOrderUpdated, OrderID: "o3", VendorIDs: []string{"bad id", "v1"}}),
	}}
	clearer := &recordingClearer{}
	consumer := NewConsumerWith(reader, clearer, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, consumer.Run(ctx))
	assert.Equal(t, []string{"v1", "v2", "v1"}, clearer.cleared)
	assert.Equal(t, []int64{1, 2, 3, 4}, reader.committed)
}

type erroringReader struct{ fakeReader }

func (erroringReader) FetchMessage(context.Context) (kafka.Message, error) {
	return kafka.Message{}, errors.New("broker unreachable")
}

func TestConsumerSurfacesFetchErrors(t *testing.T) {
	consumer := NewConsumerWith(&erroringReader{}, &recordingClearer{}, nil)
	err := consumer.Run(context.Background())
	assert.ErrorContains(t, err, "broker unreachable")
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublisherKeysByOrder(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWith(w)
	require.NoError(t, p.Publish(context.Background(), OrderEvent{Type: TypeOrderPaid, OrderID: "o9", VendorIDs: []string{"v1"}}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "o9", string(w.msgs[0].Key))
	evt, err := decode(w.msgs[0].Value)
	require.NoError(t, err)
	assert.True(t, evt.Relevant())
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092", "c:9092"}, SplitBrokers("a:9092, b:9092", "", " c:9092 "))
}
