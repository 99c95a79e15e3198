// Package redisstream delivers outbox messages to a Redis stream with XADD.
package redisstream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"suiverify/internal/platform/kafka/producer"
)

// DefaultMaxLen caps the stream length with approximate trimming.
const DefaultMaxLen = 10000

// Sink appends each message as one stream entry. The message topic is ignored;
// every entry goes to the configured stream.
type Sink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// New creates a stream sink. A non-positive maxLen selects DefaultMaxLen.
func New(client redis.Cmdable, stream string, maxLen int64) *Sink {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Sink{client: client, stream: stream, maxLen: maxLen}
}

// Produce writes key, payload and headers as stream fields.
func (s *Sink) Produce(ctx context.Context, msg *producer.Message) error {
	values := make(map[string]any, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		values[k] = v
	}
	values["key"] = string(msg.Key)
	values["payload"] = string(msg.Value)

	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
