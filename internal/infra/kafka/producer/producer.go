package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/newsflow/internal/model"
)

// Producer publishes JSON messages to a single Kafka topic.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
	topic    string
}

// New creates a new Producer.
// - brokers: Kafka broker addresses
// - topic: topic every message is written to
// - s: retry strategy
func New(brokers []string, topic string, s retry.Strategy) *Producer {
	return &Producer{
		Client:   wbfkafka.NewProducer(brokers, topic),
		strategy: s,
		topic:    topic,
	}
}

// ProduceRequest enqueues a render request keyed by its ID, so retries of the
// same request land on the same partition.
func (p *Producer) ProduceRequest(ctx context.Context, req model.RenderRequest) error {
	return p.send(ctx, req.ID.String(), req)
}

// ProduceRendered announces a stored graphic keyed by its render ID.
func (p *Producer) ProduceRendered(ctx context.Context, ev model.RenderedEvent) error {
	return p.send(ctx, ev.RenderID.String(), ev)
}

func (p *Producer) send(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message for %s: %w", p.topic, err)
	}

	if err = p.Client.SendWithRetry(ctx, p.strategy, []byte(key), data); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", p.topic, err)
	}

	return nil
}
