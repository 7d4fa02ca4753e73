package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Backed by Go channels in a single process or NATS when configured.
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

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Payload   []byte `json:"payload"`
	Timestamp int64  `json:"timestamp"`
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
	Type string

	// Channel settings
	ChannelBufferSize int

	// NATS settings
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Topic names for domain events.
const (
	TopicMealChanged = "mealplanner.meal.changed"
	TopicPlanChanged = "mealplanner.plan.changed"
	TopicUserCreated = "mealplanner.user.created"
)

// MealChangedEvent is published when a meal or its ingredients change.
type MealChangedEvent struct {
	MealID  int64 `json:"mealId"`
	Deleted bool  `json:"deleted,omitempty"`
}

// PlanChangedEvent is published when a plan entry is added or removed.
type PlanChangedEvent struct {
	UserID int64  `json:"userId"`
	Date   string `json:"date"` // YYYY-MM-DD
}

// UserCreatedEvent is published after successful registration.
type UserCreatedEvent struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}
