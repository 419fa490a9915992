package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/toolsascode/migrun/internal/logger"
	"github.com/toolsascode/migrun/internal/queue"
)

const (
	headerJobID     = "job-id"
	headerOperation = "operation"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer implements queue.Producer using Kafka
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishJob publishes a migration job to Kafka
func (p *Producer) PublishJob(ctx context.Context, job *queue.Job) error {
	msg, err := encodeMessage(job)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	logger.Infof("Published migration job %s (%s) to Kafka topic %s", job.ID, job.Operation, p.topic)
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

func encodeMessage(job *queue.Job) (kafka.Message, error) {
	job.EnsureID()
	if err := job.Validate(); err != nil {
		return kafka.Message{}, err
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal job: %w", err)
	}

	return kafka.Message{
		Key:   []byte(job.ID),
		Value: jobData,
		Headers: []kafka.Header{
			{Key: headerJobID, Value: []byte(job.ID)},
			{Key: headerOperation, Value: []byte(job.Operation)},
		},
	}, nil
}

func decodeMessage(msg kafka.Message) (*queue.Job, error) {
	var job queue.Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	// Extract job ID from headers if not in body
	if job.ID == "" {
		for _, header := range msg.Headers {
			if header.Key == headerJobID {
				job.ID = string(header.Value)
				break
			}
		}
	}
	if job.ID == "" {
		job.ID = string(msg.Key)
	}

	return &job, nil
}
