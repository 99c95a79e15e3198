package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	newCtx, span := NewNoop().Start(ctx, SpanExtract, String(AttrVariant, "original"))

	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)
	span.SetAttributes(Bool(AttrFaceMatch, true))
	span.AddEvent("candidate", Int64(AttrCandidates, 3))
	span.End(errors.New("ocr unavailable"))
}

func TestOTelTracer(t *testing.T) {
	tr := NewOTel(WithOTelTracer(noop.NewTracerProvider().Tracer("test")))

	_, span := tr.Start(context.Background(), SpanPublish, String(AttrSessionID, "abc"))
	require.NotNil(t, span)
	span.SetAttributes(Float64(AttrConfidence, 0.9))
	span.AddEvent("guard.claimed")
	span.End(errors.New("boom"))
}

func TestToOTelAttributes(t *testing.T) {
	got := toOTelAttributes([]Attribute{
		String("s", "v"),
		Bool("b", true),
		Int64("i", 7),
		{Key: "n", Value: 3},
		Float64("f", 0.5),
		Duration("d", 1500*time.Millisecond),
		{Key: "skipped", Value: struct{}{}},
	})

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("s", "v"),
		attribute.Bool("b", true),
		attribute.Int64("i", 7),
		attribute.Int64("n", 3),
		attribute.Float64("f", 0.5),
		attribute.Int64("d", 1500),
	}, got)
	assert.Nil(t, toOTelAttributes(nil))
}

func TestHashIdentifier(t *testing.T) {
	assert.Empty(t, HashIdentifier(""))

	h := HashIdentifier("ABCDE1234F")
	assert.Len(t, h, 16)
	assert.Equal(t, h, HashIdentifier("ABCDE1234F"))
	assert.NotEqual(t, h, HashIdentifier("ABCDE1234G"))
}
