package kafka

import (
	"strings"
	"time"

	"suiverify/internal/platform/config"
)

// ProducerConfig holds configuration for the request producer.
type ProducerConfig struct {
	Brokers         []string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// ConsumerConfig holds configuration for the result consumer group.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	ResetToEarliest bool
}

// SplitBrokers turns a comma separated broker list into addresses, dropping blanks.
func SplitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ProducerConfigFrom derives producer settings from the server config.
func ProducerConfigFrom(cfg config.KafkaConfig) ProducerConfig {
	return ProducerConfig{
		Brokers:         SplitBrokers(cfg.Brokers),
		Acks:            cfg.Acks,
		Retries:         cfg.Retries,
		DeliveryTimeout: cfg.DeliveryTimeout,
	}
}

// ConsumerConfigFrom derives the result consumer settings from the server config.
func ConsumerConfigFrom(cfg config.KafkaConfig) ConsumerConfig {
	return ConsumerConfig{
		Brokers:         SplitBrokers(cfg.Brokers),
		GroupID:         cfg.ConsumerGroup,
		Topics:          []string{cfg.ResultTopic},
		ResetToEarliest: true,
	}
}
