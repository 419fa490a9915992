package pulsar

import (
	"context"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/toolsascode/migrun/internal/queue"
)

// Queue carries migration jobs over one Pulsar topic through a single
// client connection. Workers share a failover subscription, so only the
// active one runs jobs and it sees them in publish order.
type Queue struct {
	client   pulsar.Client
	producer *Producer
	consumer *Consumer
}

// NewQueue dials url once and opens a producer and a subscription on topic.
func NewQueue(url, topic, subscriptionName string) (*Queue, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar client: %w", err)
	}

	producer, err := createProducer(client, topic)
	if err != nil {
		client.Close()
		return nil, err
	}

	consumer, err := subscribe(client, topic, subscriptionName)
	if err != nil {
		_ = producer.Close()
		client.Close()
		return nil, err
	}

	return &Queue{
		client:   client,
		producer: producer,
		consumer: consumer,
	}, nil
}

// PublishJob assigns the job an ID if it has none and sends it keyed by
// that ID.
func (q *Queue) PublishJob(ctx context.Context, job *queue.Job) error {
	return q.producer.PublishJob(ctx, job)
}

// Consume blocks, handing jobs to handler until ctx is cancelled. Failed
// jobs are acknowledged and reported, never redelivered.
func (q *Queue) Consume(ctx context.Context, handler queue.JobHandler) error {
	return q.consumer.Consume(ctx, handler)
}

// Close releases the producer and the subscription before the shared client.
func (q *Queue) Close() error {
	_ = q.producer.Close()
	_ = q.consumer.Close()
	if q.client != nil {
		q.client.Close()
	}
	return nil
}
