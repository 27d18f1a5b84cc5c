package interfaces

import "context"

// EventPublisher delivers domain events to downstream consumers.
// Publishing is best-effort relative to ledger correctness; a failed
// publish never rolls back a committed balance change.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
