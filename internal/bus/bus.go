// Package bus carries claim lifecycle events between intake and the worker:
// in-process channels on the community tier, NATS subjects on the pro tier.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/metrics"
)

const (
	backendChannel = "channel"
	backendNATS    = "nats"
)

// New creates the event bus selected by cfg.Type.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case backendChannel, "":
		return NewChannelBus(cfg.ChannelBufferSize), nil
	case backendNATS:
		return NewNATSBus(cfg)
	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// PublishJSON encodes event as JSON and publishes it on topic.
func PublishJSON(ctx context.Context, b domain.EventBus, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}
	return b.Publish(ctx, topic, payload)
}

func newMessage(backend, topic string, payload []byte) *domain.Message {
	metrics.BusMessagesTotal.WithLabelValues(backend, topic).Inc()
	return &domain.Message{
		ID:        uuid.NewString(),
		Topic:     topic,
		Payload:   payload,
		Metadata:  map[string]string{"backend": backend},
		Timestamp: time.Now().UnixNano(),
	}
}
