package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for extraction and the KYC flow.
// All methods are safe on a nil receiver so services can run without metrics.
type Metrics struct {
	ExtractionLatency prometheus.Histogram
	ExtractionResults *prometheus.CounterVec
	OCRCandidates     *prometheus.CounterVec
	SuccessRatio      prometheus.Histogram
	FieldHits         *prometheus.CounterVec

	SessionsStarted    prometheus.Counter
	SessionTransitions *prometheus.CounterVec
	FaceComparisons    *prometheus.CounterVec
	Publications       *prometheus.CounterVec
	VerificationResult *prometheus.CounterVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExtractionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "suiverify_extraction_duration_seconds",
			Help:    "Time to run the OCR ensemble and field extraction for one document",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		ExtractionResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiverify_extractions_total",
			Help: "Document extractions by outcome (complete, partial, empty, failed)",
		}, []string{"outcome"}),
		OCRCandidates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiverify_ocr_candidates_total",
			Help: "OCR matrix entries by variant and outcome (ok, failed)",
		}, []string{"variant", "outcome"}),
		SuccessRatio: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "suiverify_extraction_success_ratio",
			Help:    "Share of expected fields resolved per document",
			Buckets: []float64{0, 0.25, 0.5, 0.75, 1},
		}),
		FieldHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiverify_extraction_fields_total",
			Help: "Expected fields by name and outcome (hit, miss)",
		}, []string{"field", "outcome"}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "suiverify_kyc_sessions_started_total",
			Help: "KYC sessions created",
		}),
		SessionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiverify_kyc_session_transitions_total",
			Help: "KYC session state transitions by target state",
		}, []string{"state"}),
		FaceComparisons: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiverify_face_comparisons_total",
			Help: "Face comparison outcomes (match, no_match, error)",
		}, []string{"outcome"}),
		Publications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiverify_verification_publications_total",
			Help: "Verification request publications (published, already_published, failed)",
		}, []string{"outcome"}),
		VerificationResult: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "suiverify_verification_results_total",
			Help: "Verifier results applied to sessions (verified, rejected, duplicate, skipped)",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveExtraction(durationSeconds float64, outcome string) {
	if m == nil {
		return
	}
	m.ExtractionLatency.Observe(durationSeconds)
	m.ExtractionResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementOCRCandidate(variant, outcome string) {
	if m == nil {
		return
	}
	m.OCRCandidates.WithLabelValues(variant, outcome).Inc()
}

func (m *Metrics) ObserveSuccessRatio(ratio float64) {
	if m == nil {
		return
	}
	m.SuccessRatio.Observe(ratio)
}

func (m *Metrics) IncrementFieldHit(field string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.FieldHits.WithLabelValues(field, outcome).Inc()
}

func (m *Metrics) IncrementSessionsStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

func (m *Metrics) IncrementTransition(state string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(state).Inc()
}

func (m *Metrics) IncrementFaceComparison(outcome string) {
	if m == nil {
		return
	}
	m.FaceComparisons.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementPublication(outcome string) {
	if m == nil {
		return
	}
	m.Publications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementVerificationResult(outcome string) {
	if m == nil {
		return
	}
	m.VerificationResult.WithLabelValues(outcome).Inc()
}
