package nop

import (
	"context"

	interfaces "github.com/sheikh-saqib/banking-ledger-system/internal/interfaces"
)

// Publisher discards events. Used when no broker is configured.
type Publisher struct{}

func NewPublisher() *Publisher { return &Publisher{} }

func (Publisher) Publish(ctx context.Context, topic string, event any) error { return nil }

var _ interfaces.EventPublisher = (*Publisher)(nil)
