// internal/events/kafka.go
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/example/checkout-gateway/internal/payment"
	m "github.com/example/checkout-gateway/pkg/metrics"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Bus publishes intent events to a Kafka topic. The writer is created once
// and runs in async mode, so publishing never blocks the HTTP response;
// delivery failures surface in the logs and the events_published_total counter.
type Bus struct {
	w      messageWriter
	topic  string
	logger *slog.Logger
}

func New(brokers []string, topic string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "events", "topic", topic)

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				m.IncEventPublished(m.OutcomeFailed)
				logger.Error("deliver intent events", "count", len(msgs), "err", err)
				return
			}
			for range msgs {
				m.IncEventPublished(m.OutcomeSuccess)
			}
		},
	}
	return &Bus{w: w, topic: topic, logger: logger}
}

func (b *Bus) PublishIntentCreated(ctx context.Context, ev payment.CreatedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Event, err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.PaymentIntentID),
		Value: payload,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Event)},
		},
	}
	// the request context may be cancelled before the async batch is flushed
	if err := b.w.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		m.IncEventPublished(m.OutcomeFailed)
		return fmt.Errorf("publish to %s: %w", b.topic, err)
	}
	return nil
}

// Close flushes pending messages.
func (b *Bus) Close() error {
	return b.w.Close()
}

// Nop drops events. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishIntentCreated(context.Context, payment.CreatedEvent) error { return nil }
func (Nop) Close() error                                                      { return nil }
