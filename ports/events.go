package ports

import "context"

// EventPublisher notifies other instances about provider activity.
type EventPublisher interface {
	// PublishAssertionIssued announces a signed authentication assertion.
	PublishAssertionIssued(ctx context.Context, identity, returnTo, handle string) error

	// PublishHandleInvalidated announces that a relying party was told its
	// cached association handle is stale.
	PublishHandleInvalidated(ctx context.Context, handle string) error
}
