package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/TWankio2/lipaworld-orca/pkg/events"
	pkgkafka "github.com/TWankio2/lipaworld-orca/pkg/kafka"
)

// MessageProducer is the subset of pkgkafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// Publisher implements port.EventPublisher using Kafka. Each event is sent as
// a JSON envelope keyed by its aggregate ID.
type Publisher struct {
	producer MessageProducer
	logger   *slog.Logger
	topic    string
}

// NewPublisher creates a new Kafka event publisher.
func NewPublisher(producer MessageProducer, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish sends domain events to Kafka.
func (p *Publisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	messages := make([]pkgkafka.Message, 0, len(evts))
	for _, evt := range evts {
		envelope, err := events.NewEnvelope(evt)
		if err != nil {
			return err
		}

		value, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("failed to marshal envelope for %s: %w", envelope.EventType, err)
		}

		p.logger.DebugContext(ctx, "publishing event",
			slog.String("event_type", envelope.EventType),
			slog.String("aggregate_id", envelope.AggregateID),
			slog.String("topic", p.topic),
			slog.Int("payload_size", len(value)),
		)

		messages = append(messages, pkgkafka.Message{
			Key:   []byte(envelope.AggregateID),
			Value: value,
			Headers: map[string]string{
				"event_type":   envelope.EventType,
				"event_id":     envelope.EventID,
				"content-type": "application/json",
			},
		})
	}

	if len(messages) == 0 {
		return nil
	}

	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", p.topic, err)
	}

	return nil
}
