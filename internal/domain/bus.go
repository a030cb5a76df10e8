package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages. Buses only log a returned
// error at debug level; the handler owns failure reporting.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `mapstructure:"type"`

	// Channel settings (Community tier)
	ChannelBufferSize int `mapstructure:"channel_buffer_size"`

	// NATS settings (Pro tier)
	NATSUrl           string `mapstructure:"nats_url"`
	NATSToken         string `mapstructure:"nats_token"`
	NATSMaxReconnects int    `mapstructure:"nats_max_reconnects"`
	NATSReconnectWait int    `mapstructure:"nats_reconnect_wait"` // seconds

	// NATSQueueGroup load-balances each topic across service replicas.
	// Empty means every replica receives every message.
	NATSQueueGroup string `mapstructure:"nats_queue_group"`
}

// Topic names for claim processing events.
const (
	TopicFNOLSaved           = "claimdesk.fnol.saved"
	TopicAssessmentCompleted = "claimdesk.assessment.completed"
	TopicEvaluationCompleted = "claimdesk.evaluation.completed"
)

// FNOLSavedEvent is published after an FNOL is stored.
type FNOLSavedEvent struct {
	ClaimID string `json:"claim_id"`
	UserID  string `json:"user_id,omitempty"`
}

// EvaluationCompletedEvent is published after a persisted evaluation.
type EvaluationCompletedEvent struct {
	ClaimID      string `json:"claim_id"`
	EvaluationID int64  `json:"evaluation_id"`
	Decision     string `json:"decision"`
	StatusID     int64  `json:"status_id"`
}
