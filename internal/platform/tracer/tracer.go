// Package tracer is a small tracing port so the extraction and KYC services
// can emit spans without importing OpenTelemetry directly.
//
// NoopTracer serves tests; OTelTracer adapts the global OpenTelemetry provider.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks it failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a span whose context should be passed to child operations.
	//
	// Example:
	//   ctx, span := t.Start(ctx, tracer.SpanExtract, tracer.Int64(tracer.AttrImageBytes, n))
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashIdentifier returns a short SHA-256 prefix of a document or subject id
// so traces can be correlated without carrying the raw value.
func HashIdentifier(id string) string {
	if id == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(id))
	return hex.EncodeToString(hash[:8])
}

// Span names.
const (
	SpanExtract       = "document.extract"
	SpanOCRRun        = "document.ocr.run"
	SpanOCRCall       = "document.ocr.call"
	SpanFaceCompare   = "kyc.face.compare"
	SpanConfirm       = "kyc.confirm"
	SpanPublish       = "kyc.publish"
	SpanApplyResult   = "kyc.apply_result"
	SpanOutboxDeliver = "outbox.deliver"
)

// Attribute keys.
const (
	AttrSessionID    = "session_id"
	AttrImageBytes   = "image.bytes"
	AttrVariant      = "ocr.variant"
	AttrProfile      = "ocr.profile"
	AttrCandidates   = "ocr.candidates"
	AttrSuccessRatio = "extract.success_ratio"
	AttrConfidence   = "extract.confidence"
	AttrDocumentHash = "document.hash"
	AttrEvidenceHash = "evidence.hash"
	AttrAlreadySent  = "publish.already_published"
	AttrFaceMatch    = "face.match"
)
