package logsink

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suiverify/internal/platform/kafka/producer"
)

func TestProduceLogsWithoutPayload(t *testing.T) {
	var buf bytes.Buffer
	sink := New(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := sink.Produce(context.Background(), &producer.Message{
		Topic:   "requests",
		Key:     []byte("session-1"),
		Value:   []byte(`{"fields":{"name":"JOHN DOE"}}`),
		Headers: map[string]string{"event_type": "verification_requested"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"key":"session-1"`)
	assert.Contains(t, out, `"event_type":"verification_requested"`)
	assert.NotContains(t, out, "JOHN DOE")
}
