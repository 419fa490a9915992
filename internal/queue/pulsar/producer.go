package pulsar

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/toolsascode/migrun/internal/logger"
	"github.com/toolsascode/migrun/internal/queue"
)

const (
	propertyJobID     = "job-id"
	propertyOperation = "operation"
)

type sender interface {
	Send(ctx context.Context, msg *pulsar.ProducerMessage) (pulsar.MessageID, error)
	Close()
}

// Producer implements queue.Producer using Pulsar
type Producer struct {
	client   pulsar.Client
	producer sender
	topic    string
}

// NewProducer creates a new Pulsar producer
func NewProducer(url, topic string) (*Producer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar client: %w", err)
	}

	p, err := createProducer(client, topic)
	if err != nil {
		client.Close()
		return nil, err
	}
	p.client = client
	return p, nil
}

func createProducer(client pulsar.Client, topic string) (*Producer, error) {
	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar producer: %w", err)
	}

	return &Producer{producer: producer, topic: topic}, nil
}

// PublishJob publishes a migration job to Pulsar
func (p *Producer) PublishJob(ctx context.Context, job *queue.Job) error {
	msg, err := encodeMessage(job)
	if err != nil {
		return err
	}

	if _, err := p.producer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send message to Pulsar: %w", err)
	}

	logger.Infof("Published migration job %s (%s) to Pulsar topic %s", job.ID, job.Operation, p.topic)
	return nil
}

// Close closes the Pulsar producer
func (p *Producer) Close() error {
	p.producer.Close()
	if p.client != nil {
		p.client.Close()
	}
	return nil
}

func encodeMessage(job *queue.Job) (*pulsar.ProducerMessage, error) {
	job.EnsureID()
	if err := job.Validate(); err != nil {
		return nil, err
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	return &pulsar.ProducerMessage{
		Payload: jobData,
		Key:     job.ID,
		Properties: map[string]string{
			propertyJobID:     job.ID,
			propertyOperation: string(job.Operation),
		},
	}, nil
}

func decodePayload(payload []byte, properties map[string]string, key string) (*queue.Job, error) {
	var job queue.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	// Extract job ID from properties if not in body
	if job.ID == "" {
		if jobID, ok := properties[propertyJobID]; ok {
			job.ID = jobID
		} else {
			job.ID = key
		}
	}

	return &job, nil
}
