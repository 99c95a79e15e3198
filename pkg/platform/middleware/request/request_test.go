package request

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suiverify/pkg/requestcontext"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("generates UUID when no header provided", func(t *testing.T) {
		var capturedID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedID = requestcontext.RequestID(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/kyc/sessions", nil))

		assert.Len(t, capturedID, 36)
		assert.Equal(t, capturedID, w.Header().Get("X-Request-ID"))
	})

	t.Run("accepts valid client-provided ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/kyc/sessions", nil)
		req.Header.Set("X-Request-ID", "trace.span_1234")
		w := httptest.NewRecorder()
		RequestID(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, "trace.span_1234", w.Header().Get("X-Request-ID"))
	})

	t.Run("replaces unsafe client-provided IDs", func(t *testing.T) {
		for _, id := range []string{
			strings.Repeat("a", MaxRequestIDLength+1),
			"valid\ninjected-log-line",
			"request id",
			`request"id`,
		} {
			req := httptest.NewRequest(http.MethodGet, "/kyc/sessions", nil)
			req.Header.Set("X-Request-ID", id)
			w := httptest.NewRecorder()
			RequestID(okHandler()).ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			assert.NotEqual(t, id, got)
			assert.Len(t, got, 36)
		}
	})
}

func TestMetadata(t *testing.T) {
	var ip, device string
	var pinned bool
	handler := Metadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip = requestcontext.ClientIP(ctx)
		device = requestcontext.Device(ctx)
		pinned = requestcontext.Now(ctx).Equal(requestcontext.Now(ctx))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:52100"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.7", ip)
	assert.Equal(t, "unknown", device)
	assert.True(t, pinned, "request time must be stable within a request")
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("extract exploded")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/documents/extract", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLatencyMiddleware_UsesRoutePattern(t *testing.T) {
	m := &Metrics{EndpointLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "test_endpoint_latency_seconds",
	}, []string{"endpoint"})}

	r := chi.NewRouter()
	r.Use(LatencyMiddleware(m))
	r.Get("/kyc/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/kyc/sessions/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/kyc/sessions/def", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(m.EndpointLatency), "both calls share one route label")
}

func TestIsValidRequestID(t *testing.T) {
	assert.True(t, isValidRequestID("ABC-123"))
	assert.True(t, isValidRequestID(strings.Repeat("x", MaxRequestIDLength)))
	assert.False(t, isValidRequestID(""))
	assert.False(t, isValidRequestID("has;semicolon"))
}
