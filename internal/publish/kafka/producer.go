// Package kafka publishes signals to a Kafka topic as JSON.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/publish"
)

// DefaultTopic receives generated signals.
const DefaultTopic = "trading.signals"

// Publisher wraps a sarama SyncProducer.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher connects a synchronous producer to brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewPublisherWithProducer(producer, topic), nil
}

// NewPublisherWithProducer wraps an existing producer. An empty topic selects DefaultTopic.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{producer: producer, topic: topic}
}

// Publish sends signal keyed by symbol so a symbol's signals stay ordered.
func (p *Publisher) Publish(ctx context.Context, signal *domain.Signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(signal.Symbol),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("signal_type"), Value: []byte(signal.SignalType)},
			{Key: []byte("source"), Value: []byte(signal.Source)},
		},
		Timestamp: signal.Timestamp,
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("send signal %s: %w", signal.ID, err)
	}
	return nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}

var _ publish.SignalPublisher = (*Publisher)(nil)
