package pulsar

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/toolsascode/migrun/internal/logger"
	"github.com/toolsascode/migrun/internal/queue"
)

type receiver interface {
	Receive(ctx context.Context) (pulsar.Message, error)
	Ack(msg pulsar.Message) error
	Close()
}

// Consumer implements queue.Consumer using Pulsar
type Consumer struct {
	client   pulsar.Client
	consumer receiver
	topic    string
}

// NewConsumer creates a new Pulsar consumer. The failover subscription
// keeps a single active consumer so jobs are handled in publish order.
func NewConsumer(url, topic, subscriptionName string) (*Consumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar client: %w", err)
	}

	c, err := subscribe(client, topic, subscriptionName)
	if err != nil {
		client.Close()
		return nil, err
	}
	c.client = client
	return c, nil
}

func subscribe(client pulsar.Client, topic, subscriptionName string) (*Consumer, error) {
	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscriptionName,
		Type:             pulsar.Failover,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar consumer: %w", err)
	}

	return &Consumer{consumer: consumer, topic: topic}, nil
}

// Consume receives jobs one at a time. Every message is acknowledged after
// the handler returns; failed jobs are logged, not redelivered.
func (c *Consumer) Consume(ctx context.Context, handler queue.JobHandler) error {
	logger.Infof("Starting Pulsar consumer for topic %s", c.topic)

	for {
		msg, err := c.consumer.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Info("Pulsar consumer context cancelled")
				return ctx.Err()
			}
			return fmt.Errorf("failed to receive message from Pulsar: %w", err)
		}

		job, err := decodePayload(msg.Payload(), msg.Properties(), msg.Key())
		if err != nil {
			logger.Errorf("Dropping Pulsar message %v: %v", msg.ID(), err)
		} else {
			logger.Infof("Processing migration job %s from Pulsar", job.ID)

			result, err := handler(ctx, job)
			switch {
			case err != nil:
				logger.Errorf("Failed to process migration job %s: %v", job.ID, err)
			case result != nil && result.Success:
				logger.Infof("Successfully processed migration job %s: %d applied, %d skipped",
					job.ID, len(result.Applied), len(result.Skipped))
			case result != nil:
				logger.Warnf("Migration job %s completed with errors: %v", job.ID, result.Errors)
			}
		}

		if err := c.consumer.Ack(msg); err != nil {
			logger.Errorf("Failed to acknowledge Pulsar message %v: %v", msg.ID(), err)
		}
	}
}

// Close closes the Pulsar consumer
func (c *Consumer) Close() error {
	c.consumer.Close()
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
