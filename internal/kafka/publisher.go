package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/labelgw/label-gateway/internal/model"
)

// Publisher writes dispatch-outcome envelopes to the recorder topic.
// Keyed by account id so one tenant's history stays ordered.
type Publisher struct {
	w *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{w: w}
}

func (p *Publisher) Publish(ctx context.Context, env model.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.AccountID),
		Value: b,
	})
}

func (p *Publisher) Close() error { return p.w.Close() }
