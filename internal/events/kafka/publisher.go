package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	interfaces "github.com/sheikh-saqib/banking-ledger-system/internal/interfaces"
)

// Publisher writes domain events to Kafka. The topic comes from the
// message, so one writer serves both the transfer stream and the alert
// stream.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
