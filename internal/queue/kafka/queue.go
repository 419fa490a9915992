package kafka

import (
	"context"
	"errors"

	"github.com/toolsascode/migrun/internal/queue"
)

// Queue carries migration jobs over a single Kafka topic. The API server
// publishes to it and a worker consumes from it under one consumer group,
// so each job is run by exactly one worker, in partition order.
type Queue struct {
	topic    string
	producer *Producer
	consumer *Consumer
}

// NewQueue connects a job writer and a group reader to topic.
func NewQueue(brokers []string, topic, groupID string) *Queue {
	return &Queue{
		topic:    topic,
		producer: NewProducer(brokers, topic),
		consumer: NewConsumer(brokers, topic, groupID),
	}
}

func newQueue(topic string, w messageWriter, r messageReader) *Queue {
	return &Queue{
		topic:    topic,
		producer: &Producer{writer: w, topic: topic},
		consumer: &Consumer{reader: r, topic: topic},
	}
}

// Topic returns the Kafka topic jobs travel on.
func (q *Queue) Topic() string { return q.topic }

// PublishJob assigns the job an ID if it has none and enqueues it keyed by
// that ID.
func (q *Queue) PublishJob(ctx context.Context, job *queue.Job) error {
	return q.producer.PublishJob(ctx, job)
}

// Consume blocks, handing jobs to handler until ctx is cancelled. A job
// whose run fails is committed anyway; it is reported, not retried.
func (q *Queue) Consume(ctx context.Context, handler queue.JobHandler) error {
	return q.consumer.Consume(ctx, handler)
}

// Close shuts the writer and the reader down, reporting both failures.
func (q *Queue) Close() error {
	return errors.Join(q.producer.Close(), q.consumer.Close())
}
