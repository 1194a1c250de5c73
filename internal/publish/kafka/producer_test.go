package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-lab/internal/domain"
)

func testSignal() *domain.Signal {
	ts := time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)
	return &domain.Signal{
		ID:         "sig-1",
		Symbol:     "AAPL",
		SignalType: domain.SignalTypeBullish,
		Strength:   0.6,
		Source:     domain.SignalSourceTechnical,
		Confidence: 0.7,
		Timestamp:  ts,
		Expiration: ts.Add(24 * time.Hour),
	}
}

func TestPublisher_Publish(t *testing.T) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, config)

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got domain.Signal
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.ID != "sig-1" || got.SignalType != domain.SignalTypeBullish {
			return fmt.Errorf("unexpected payload: %s", val)
		}
		return nil
	})

	p := NewPublisherWithProducer(producer, "")
	assert.Equal(t, DefaultTopic, p.topic)
	require.NoError(t, p.Publish(context.Background(), testSignal()))
	require.NoError(t, p.Close())
}

func TestPublisher_PublishError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisherWithProducer(producer, "signals")
	err := p.Publish(context.Background(), testSignal())
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
	require.NoError(t, p.Close())
}

func TestNewPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewPublisher(nil, "")
	assert.Error(t, err)
}
