// Package publish defines the outbound signal sink and its Kafka implementation.
package publish

import (
	"context"

	"market-signal-lab/internal/domain"
)

// SignalPublisher delivers generated signals to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, signal *domain.Signal) error
}
