package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the outbox worker.
type Metrics struct {
	PendingDepth prometheus.Gauge

	PublishedTotal  prometheus.Counter
	PublishFailures prometheus.Counter
	PublishDuration prometheus.Histogram
	BatchSize       prometheus.Histogram
	PollDuration    prometheus.Histogram
}

// New registers the outbox metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PendingDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "suiverify_outbox_pending_total",
			Help: "Current number of undelivered outbox entries",
		}),
		PublishedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "suiverify_outbox_published_total",
			Help: "Outbox entries delivered to the sink",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "suiverify_outbox_publish_failures_total",
			Help: "Outbox fetch or delivery failures",
		}),
		PublishDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "suiverify_outbox_publish_duration_seconds",
			Help:    "Time taken to deliver one outbox entry",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "suiverify_outbox_batch_size",
			Help:    "Number of entries processed per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		PollDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "suiverify_outbox_poll_duration_seconds",
			Help:    "Time taken for each poll cycle",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) SetPendingDepth(count int64) {
	m.PendingDepth.Set(float64(count))
}

func (m *Metrics) IncPublished() {
	m.PublishedTotal.Inc()
}

func (m *Metrics) IncPublishFailures() {
	m.PublishFailures.Inc()
}

func (m *Metrics) ObservePublishDuration(durationSeconds float64) {
	m.PublishDuration.Observe(durationSeconds)
}

func (m *Metrics) ObserveBatchSize(size int) {
	m.BatchSize.Observe(float64(size))
}

func (m *Metrics) ObservePollDuration(durationSeconds float64) {
	m.PollDuration.Observe(durationSeconds)
}
