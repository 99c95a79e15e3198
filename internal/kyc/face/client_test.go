package face

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suiverify/internal/sentinel"
	"suiverify/pkg/platform/circuit"
)

func newClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewHTTPClient(srv.URL, time.Second, opts...)
}

func TestCompareSendsBase64Images(t *testing.T) {
	var got compareRequest
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/compare", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"match":true,"distance":0.31}`))
	})

	match, err := client.Compare(context.Background(), []byte("doc"), []byte("live"))
	require.NoError(t, err)
	assert.True(t, match.Match)
	assert.InDelta(t, 0.31, match.Distance, 1e-9)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("doc")), got.Image1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("live")), got.Image2)
	assert.Equal(t, DefaultTolerance, got.Tolerance)
}

func TestCompareAppliesTolerance(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"match":true,"distance":0.45}`))
	})

	match, err := client.Compare(context.Background(), []byte("a"), []byte("b"))
	require.NoError(t, err)
	assert.False(t, match.Match)
}

func TestCompareFaceErrors(t *testing.T) {
	cases := map[string]error{
		"no_face_detected":        ErrNoFaceDetected,
		"multiple_faces_detected": ErrMultipleFacesDetected,
		"encoding_failed":         ErrEncodingFailed,
		"landmarks_missing":       ErrEncodingFailed,
	}
	for errorType, want := range cases {
		t.Run(errorType, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"match":false,"error_type":"` + errorType + `"}`))
			})
			_, err := client.Compare(context.Background(), []byte("a"), []byte("b"))
			require.Error(t, err)
			assert.ErrorIs(t, err, want)
			assert.True(t, IsFaceError(err))
		})
	}
}

func TestCompareServerErrorIsUnavailable(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Compare(context.Background(), []byte("a"), []byte("b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.False(t, IsFaceError(err))
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	breaker := circuit.New("face-test", circuit.WithFailureThreshold(2), circuit.WithProbeInterval(100))
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithBreaker(breaker))

	for range 2 {
		_, err := client.Compare(context.Background(), []byte("a"), []byte("b"))
		require.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, circuit.StateOpen, breaker.State())

	_, err := client.Compare(context.Background(), []byte("a"), []byte("b"))
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "open breaker fails fast")
}

func TestFaceErrorsDoNotTripBreaker(t *testing.T) {
	breaker := circuit.New("face-test", circuit.WithFailureThreshold(1))
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"match":false,"error_type":"no_face_detected"}`))
	}, WithBreaker(breaker))

	for range 3 {
		_, _ = client.Compare(context.Background(), []byte("a"), []byte("b"))
	}
	assert.Equal(t, circuit.StateClosed, breaker.State())
}

func TestCompareCancelled(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Compare(ctx, []byte("a"), []byte("b"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
