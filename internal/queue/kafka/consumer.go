package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/toolsascode/migrun/internal/logger"
	"github.com/toolsascode/migrun/internal/queue"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer implements queue.Consumer using Kafka
type Consumer struct {
	reader messageReader
	topic  string
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{
		reader: reader,
		topic:  topic,
	}
}

// Consume reads jobs one at a time and commits each message once the
// handler has returned. Failed jobs are logged and not redelivered.
func (c *Consumer) Consume(ctx context.Context, handler queue.JobHandler) error {
	logger.Infof("Starting Kafka consumer for topic %s", c.topic)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Info("Kafka consumer context cancelled")
				return ctx.Err()
			}
			return fmt.Errorf("failed to read message from Kafka: %w", err)
		}

		c.handle(ctx, msg, handler)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to commit Kafka message: %w", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler queue.JobHandler) {
	job, err := decodeMessage(msg)
	if err != nil {
		logger.Errorf("Dropping Kafka message at offset %d: %v", msg.Offset, err)
		return
	}

	logger.Infof("Processing migration job %s from Kafka", job.ID)

	result, err := handler(ctx, job)
	if err != nil {
		logger.Errorf("Failed to process migration job %s: %v", job.ID, err)
		return
	}

	if result != nil {
		if result.Success {
			logger.Infof("Successfully processed migration job %s: %d applied, %d skipped",
				job.ID, len(result.Applied), len(result.Skipped))
		} else {
			logger.Warnf("Migration job %s completed with errors: %v", job.ID, result.Errors)
		}
	}
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
