package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"suiverify/internal/platform/kafka"
)

// ErrSkip marks a message that can never be handled. Handlers wrap it to have
// the offset committed instead of redelivered.
var ErrSkip = errors.New("skip message")

// Message represents a received Kafka message.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes consumed messages.
type Handler interface {
	// Handle processes a message. A non-nil error that does not wrap ErrSkip
	// rewinds the partition so the message is redelivered.
	Handle(ctx context.Context, msg *Message) error
}

// Consumer is a franz-go group consumer with manual, per-record commits.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
	backoff time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// Option customizes the consumer.
type Option func(*Consumer)

// WithRetryBackoff sets the pause applied after a failed handle before the
// message is fetched again.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// New creates a new group consumer subscribed to cfg.Topics.
func New(cfg kafka.ConsumerConfig, handler Handler, logger *slog.Logger, opts ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer group ID not configured")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("kafka consumer topics not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	kopts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
	}
	if cfg.ResetToEarliest {
		kopts = append(kopts, kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	}

	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	c := &Consumer{
		client:  client,
		handler: handler,
		logger:  logger,
		backoff: time.Second,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start begins the consumption loop in a background goroutine.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("kafka fetch error", "topic", topic, "partition", partition, "error", err)
		})
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			c.handlePartition(ctx, p)
		})
	}
}

// handlePartition processes records in order and stops at the first
// retryable failure, rewinding the partition to that record.
func (c *Consumer) handlePartition(ctx context.Context, p kgo.FetchTopicPartition) {
	for _, r := range p.Records {
		err := c.handler.Handle(ctx, toMessage(r))
		switch {
		case err == nil:
		case errors.Is(err, ErrSkip):
			c.logger.Warn("skipping unprocessable message",
				"topic", r.Topic, "partition", r.Partition, "offset", r.Offset, "error", err)
		default:
			c.logger.Error("failed to handle message",
				"topic", r.Topic, "partition", r.Partition, "offset", r.Offset, "error", err)
			c.rewind(r)
			c.sleep(ctx)
			return
		}

		if err := c.client.CommitRecords(ctx, r); err != nil {
			c.logger.Error("failed to commit offset",
				"topic", r.Topic, "partition", r.Partition, "offset", r.Offset, "error", err)
		}
	}
}

func (c *Consumer) rewind(r *kgo.Record) {
	c.client.SetOffsets(map[string]map[int32]kgo.EpochOffset{
		r.Topic: {r.Partition: {Epoch: r.LeaderEpoch, Offset: r.Offset}},
	})
}

func (c *Consumer) sleep(ctx context.Context) {
	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func toMessage(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Timestamp: r.Timestamp,
	}
}

// Stop ends the consumption loop and leaves the group.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.cancel == nil {
		c.client.Close()
		return nil
	}
	c.cancel()

	select {
	case <-c.done:
		c.client.Close()
		return nil
	case <-ctx.Done():
		c.client.Close()
		return ctx.Err()
	}
}

// Health pings the seed brokers.
func (c *Consumer) Health(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("consumer is closed")
	}
	return c.client.Ping(ctx)
}
