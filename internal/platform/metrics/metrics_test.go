package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveExtraction(1.2, "partial")
	m.IncrementOCRCandidate("otsu_binary", "failed")
	m.IncrementPublication("published")
	m.IncrementPublication("published")
	m.IncrementTransition("CONFIRMED")
	m.IncrementFieldHit("holder_name", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionResults.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OCRCandidates.WithLabelValues("otsu_binary", "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Publications.WithLabelValues("published")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionTransitions.WithLabelValues("CONFIRMED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldHits.WithLabelValues("holder_name", "miss")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveExtraction(1, "complete")
		m.IncrementOCRCandidate("original", "ok")
		m.ObserveSuccessRatio(0.75)
		m.IncrementFieldHit("document_number", true)
		m.IncrementSessionsStarted()
		m.IncrementTransition("VERIFIED")
		m.IncrementFaceComparison("match")
		m.IncrementPublication("failed")
		m.IncrementVerificationResult("skipped")
	})
}
