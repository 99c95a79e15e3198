package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"suiverify/internal/platform/kafka/producer"
	"suiverify/pkg/platform/outbox"
	"suiverify/pkg/platform/outbox/metrics"
)

// Sink delivers one message. *producer.Producer satisfies it.
type Sink interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Worker polls the outbox and delivers entries to a Sink.
// Delivery is at-least-once: an entry delivered but not marked is delivered again.
type Worker struct {
	store        outbox.Store
	sink         Sink
	topic        string
	batchSize    int
	pollInterval time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Worker.
type Option func(*Worker)

// WithTopic sets the destination topic written on each message.
func WithTopic(topic string) Option {
	return func(w *Worker) {
		w.topic = topic
	}
}

// WithBatchSize sets the maximum number of entries to fetch per poll.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithPollInterval sets the interval between polls.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// New creates a new outbox worker.
func New(store outbox.Store, sink Sink, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		store:        store,
		sink:         sink,
		topic:        "suiverify.verification.requests",
		batchSize:    100,
		pollInterval: 100 * time.Millisecond,
		logger:       slog.Default(),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the polling loop in a background goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case <-ticker.C:
			w.Poll(w.ctx)
		}
	}
}

// Poll fetches one batch and delivers it. It returns the number of entries
// delivered and marked.
func (w *Worker) Poll(ctx context.Context) int {
	start := time.Now()

	entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to fetch outbox entries", "error", err)
		if w.metrics != nil {
			w.metrics.IncPublishFailures()
		}
		return 0
	}
	if len(entries) == 0 {
		return 0
	}
	if w.metrics != nil {
		w.metrics.ObserveBatchSize(len(entries))
	}

	delivered := w.deliver(ctx, entries)

	if w.metrics != nil {
		w.metrics.ObservePollDuration(time.Since(start).Seconds())
	}
	return delivered
}

func (w *Worker) deliver(ctx context.Context, entries []*outbox.Entry) int {
	delivered := 0
	for _, entry := range entries {
		if err := w.publishEntry(ctx, entry); err != nil {
			w.logger.Error("failed to publish outbox entry",
				"id", entry.ID,
				"event_type", entry.EventType,
				"error", err,
			)
			if w.metrics != nil {
				w.metrics.IncPublishFailures()
			}
			// retried once the claim lease lapses
			continue
		}

		if err := w.store.MarkProcessed(ctx, entry.ID, time.Now()); err != nil {
			// delivered but unmarked: the verifier sees it again
			w.logger.Error("failed to mark entry as processed", "id", entry.ID, "error", err)
			continue
		}

		delivered++
		if w.metrics != nil {
			w.metrics.IncPublished()
		}
	}
	return delivered
}

func (w *Worker) publishEntry(ctx context.Context, entry *outbox.Entry) error {
	start := time.Now()

	msg := &producer.Message{
		Topic: w.topic,
		Key:   []byte(entry.AggregateID),
		Value: entry.Payload,
		Headers: map[string]string{
			"outbox_id":      entry.ID.String(),
			"aggregate_type": entry.AggregateType,
			"aggregate_id":   entry.AggregateID,
			"event_type":     entry.EventType,
		},
	}
	if err := w.sink.Produce(ctx, msg); err != nil {
		return err
	}

	if w.metrics != nil {
		w.metrics.ObservePublishDuration(time.Since(start).Seconds())
	}
	return nil
}

// drain delivers what is left during shutdown, bounded by a short timeout.
func (w *Worker) drain() {
	w.logger.Info("draining outbox worker")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for ctx.Err() == nil {
		entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
		if err != nil {
			w.logger.Error("failed to fetch entries during drain", "error", err)
			return
		}
		if len(entries) == 0 {
			return
		}
		if w.deliver(ctx, entries) == 0 {
			// sink is failing; leave the rest for the next process
			return
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateMetrics refreshes the pending depth gauge.
func (w *Worker) UpdateMetrics(ctx context.Context) error {
	if w.metrics == nil {
		return nil
	}
	count, err := w.store.CountPending(ctx)
	if err != nil {
		return err
	}
	w.metrics.SetPendingDepth(count)
	return nil
}
