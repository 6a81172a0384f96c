package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/newsflow/internal/config"
)

const fetchBackoff = 500 * time.Millisecond

// requestedHandler handles render request messages.
type requestedHandler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// Consumer reads render requests from Kafka and passes them to a handler.
type Consumer struct {
	Client   *wbfkafka.Consumer
	handler  requestedHandler
	topic    string
	strategy retry.Strategy
}

// New creates a Consumer subscribed to the render request topic.
func New(cfg *config.Kafka, s retry.Strategy, h requestedHandler) *Consumer {
	return &Consumer{
		Client:   wbfkafka.NewConsumer(cfg.Brokers, cfg.RequestTopic, cfg.GroupID),
		handler:  h,
		topic:    cfg.RequestTopic,
		strategy: s,
	}
}

// Consume fetches render requests until ctx is cancelled. A message is
// committed only after its handler succeeds.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().
		Str("topic", c.topic).
		Msg("starting consumer")

	for {
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping consumer")
			return
		}

		var msg kafka.Message
		err := retry.Do(func() error {
			var fetchErr error
			msg, fetchErr = c.Client.Fetch(ctx)
			return fetchErr
		}, c.strategy)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}

			zlog.Logger.Err(err).Msg("failed to fetch render request")
			select {
			case <-ctx.Done():
			case <-time.After(fetchBackoff):
			}
			continue
		}

		if err := c.handler.Handle(ctx, msg); err != nil {
			zlog.Logger.Err(err).
				Int64("offset", msg.Offset).
				Str("key", string(msg.Key)).
				Msg("failed to handle render request")
			continue
		}

		err = retry.Do(func() error {
			return c.Client.Commit(ctx, msg)
		}, c.strategy)
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to commit message after retries")
			continue
		}

		zlog.Logger.Info().
			Int64("offset", msg.Offset).
			Str("key", string(msg.Key)).
			Msg("render request handled")
	}
}
