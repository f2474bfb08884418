package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/garuda/ports"
)

const (
	// AssertionTopic carries a message per signed authentication assertion.
	AssertionTopic = "garuda.assertion_issued"

	// InvalidationTopic carries a message per stale handle reported to a
	// relying party.
	InvalidationTopic = "garuda.handle_invalidated"
)

// AssertionEvent announces a signed authentication assertion.
type AssertionEvent struct {
	Identity string `json:"identity"`
	ReturnTo string `json:"return_to"`
	Handle   string `json:"handle"`
}

// InvalidationEvent announces a stale association handle.
type InvalidationEvent struct {
	Handle string `json:"handle"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishAssertionIssued publishes an assertion-issued event.
func (p *WatermillPublisher) PublishAssertionIssued(ctx context.Context, identity, returnTo, handle string) error {
	return p.publish(AssertionTopic, AssertionEvent{
		Identity: identity,
		ReturnTo: returnTo,
		Handle:   handle,
	})
}

// PublishHandleInvalidated publishes a handle-invalidated event.
func (p *WatermillPublisher) PublishHandleInvalidated(ctx context.Context, handle string) error {
	return p.publish(InvalidationTopic, InvalidationEvent{Handle: handle})
}

func (p *WatermillPublisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
