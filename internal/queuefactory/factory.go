package queuefactory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toolsascode/migrun/internal/config"
	"github.com/toolsascode/migrun/internal/queue"
	"github.com/toolsascode/migrun/internal/queue/kafka"
	"github.com/toolsascode/migrun/internal/queue/pulsar"
)

const defaultGroup = "migrun-workers"

var (
	ErrKafkaBrokersRequired = errors.New("kafka brokers are required")
	ErrKafkaTopicRequired   = errors.New("kafka topic is required")
	ErrPulsarURLRequired    = errors.New("pulsar URL is required")
	ErrPulsarTopicRequired  = errors.New("pulsar topic is required")
)

// NewQueue creates a new queue based on the configuration
func NewQueue(cfg config.QueueConfig) (queue.Queue, error) {
	queueType := strings.ToLower(cfg.Type)
	if queueType == "" {
		queueType = "kafka"
	}

	switch queueType {
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, ErrKafkaBrokersRequired
		}
		if cfg.KafkaTopic == "" {
			return nil, ErrKafkaTopicRequired
		}
		if cfg.KafkaGroupID == "" {
			cfg.KafkaGroupID = defaultGroup
		}
		return kafka.NewQueue(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID), nil

	case "pulsar":
		if cfg.PulsarURL == "" {
			return nil, ErrPulsarURLRequired
		}
		if cfg.PulsarTopic == "" {
			return nil, ErrPulsarTopicRequired
		}
		if cfg.PulsarSubscription == "" {
			cfg.PulsarSubscription = defaultGroup
		}
		return pulsar.NewQueue(cfg.PulsarURL, cfg.PulsarTopic, cfg.PulsarSubscription)

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: kafka, pulsar)", cfg.Type)
	}
}
