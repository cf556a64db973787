package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	t.Run("plaintext", func(t *testing.T) {
		p, err := NewProducer(Config{Brokers: []string{"localhost:9092", "localhost:9093"}})
		require.NoError(t, err)

		assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, p.brokers)
		assert.Nil(t, p.transport)
		assert.Empty(t, p.writers)
	})

	t.Run("tls and sasl build a transport", func(t *testing.T) {
		p, err := NewProducer(Config{
			Brokers:       []string{"kafka:9093"},
			TLS:           true,
			SASLEnabled:   true,
			SASLMechanism: "SCRAM-SHA-256",
			SASLUsername:  "orca",
			SASLPassword:  "secret",
		})
		require.NoError(t, err)
		require.NotNil(t, p.transport)
		assert.NotNil(t, p.transport.TLS)
		assert.Equal(t, "SCRAM-SHA-256", p.transport.SASL.Name())
	})

	t.Run("unknown mechanism", func(t *testing.T) {
		_, err := NewProducer(Config{SASLEnabled: true, SASLMechanism: "GSSAPI"})
		assert.ErrorContains(t, err, "GSSAPI")
	})
}

func TestProducer_WriterPerTopic(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"kafka:9092"}})
	require.NoError(t, err)

	w1 := p.getOrCreateWriter("risk.decisions")
	w2 := p.getOrCreateWriter("risk.decisions")
	w3 := p.getOrCreateWriter("payments.transaction.completed")

	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
	assert.IsType(t, &kafkago.Hash{}, w1.Balancer)
	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}

func TestMessageConversion(t *testing.T) {
	msg := Message{
		Key:   []byte("tx-123"),
		Value: []byte(`{"amount":"100"}`),
		Headers: map[string]string{
			"event_type":   "risk.decision.made",
			"content-type": "application/json",
		},
	}

	back := fromKafkaMessage(toKafkaMessage(msg))

	assert.Equal(t, msg.Key, back.Key)
	assert.Equal(t, msg.Value, back.Value)
	assert.Equal(t, msg.Headers, back.Headers)
}

func TestConsumer_Process(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	newConsumer := func(h Handler) *Consumer {
		return &Consumer{handler: h, logger: logger, attempts: 3, backoff: time.Millisecond}
	}

	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		c := newConsumer(func(context.Context, Message) error { calls++; return nil })

		require.NoError(t, c.process(context.Background(), Message{}))
		assert.Equal(t, 1, calls)
	})

	t.Run("transient error is retried", func(t *testing.T) {
		calls := 0
		c := newConsumer(func(context.Context, Message) error {
			calls++
			if calls < 3 {
				return errors.New("store unavailable")
			}
			return nil
		})

		require.NoError(t, c.process(context.Background(), Message{}))
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		calls := 0
		c := newConsumer(func(context.Context, Message) error { calls++; return errors.New("down") })

		err := c.process(context.Background(), Message{})
		assert.EqualError(t, err, "down")
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		calls := 0
		c := newConsumer(func(context.Context, Message) error {
			calls++
			return Permanent(errors.New("bad payload"))
		})

		err := c.process(context.Background(), Message{})
		assert.True(t, IsPermanent(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		c := newConsumer(func(context.Context, Message) error {
			cancel()
			return errors.New("down")
		})

		err := c.process(ctx, Message{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))

	base := errors.New("bad payload")
	err := Permanent(base)
	assert.ErrorIs(t, err, base)
	assert.True(t, IsPermanent(err))
	assert.False(t, IsPermanent(base))
}
