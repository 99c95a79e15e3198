// Package logsink writes outbox messages to the structured log. It backs local
// development when neither Kafka nor Redis is configured.
package logsink

import (
	"context"
	"log/slog"

	"suiverify/internal/platform/kafka/producer"
)

type Sink struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sink {
	return &Sink{logger: logger}
}

func (s *Sink) Produce(ctx context.Context, msg *producer.Message) error {
	s.logger.InfoContext(ctx, "verification request",
		"topic", msg.Topic,
		"key", string(msg.Key),
		"event_type", msg.Headers["event_type"],
		"payload_bytes", len(msg.Value),
	)
	return nil
}
