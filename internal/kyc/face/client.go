// Package face compares live face captures with the document photo through an
// external face comparison service.
package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"suiverify/internal/sentinel"
	"suiverify/pkg/platform/circuit"
)

// DefaultTolerance is the maximum embedding distance still treated as a match.
const DefaultTolerance = 0.4

var (
	ErrNoFaceDetected        = errors.New("no face detected")
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	ErrEncodingFailed        = errors.New("face encoding failed")
	ErrUnavailable           = fmt.Errorf("face service unavailable: %w", sentinel.ErrUnavailable)
)

// IsFaceError reports whether err is a recoverable per-image failure.
func IsFaceError(err error) bool {
	return errors.Is(err, ErrNoFaceDetected) ||
		errors.Is(err, ErrMultipleFacesDetected) ||
		errors.Is(err, ErrEncodingFailed)
}

// Match is the outcome of one comparison.
type Match struct {
	Match    bool
	Distance float64
}

// Comparer compares a document face with a live face.
type Comparer interface {
	Compare(ctx context.Context, docFace, liveFace []byte) (Match, error)
}

// HTTPClient calls the face service's /compare endpoint.
type HTTPClient struct {
	baseURL    string
	tolerance  float64
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

var _ Comparer = (*HTTPClient)(nil)

// Option configures the HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

func WithTolerance(tolerance float64) Option {
	return func(c *HTTPClient) {
		if tolerance > 0 {
			c.tolerance = tolerance
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *HTTPClient) {
		c.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// NewHTTPClient creates a face client with the given request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		tolerance:  DefaultTolerance,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuit.New("face"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type compareRequest struct {
	Image1    string  `json:"image1"`
	Image2    string  `json:"image2"`
	Tolerance float64 `json:"tolerance"`
}

type compareResponse struct {
	Match     bool     `json:"match"`
	Distance  *float64 `json:"distance"`
	ErrorType string   `json:"error_type,omitempty"`
}

// Compare posts both images base64 encoded. Transport failures and 5xx
// responses count against the circuit breaker; per-image face errors do not.
func (c *HTTPClient) Compare(ctx context.Context, docFace, liveFace []byte) (Match, error) {
	if !c.breaker.Allow() {
		return Match{}, fmt.Errorf("circuit open: %w", ErrUnavailable)
	}

	match, err := c.compare(ctx, docFace, liveFace)
	switch {
	case err == nil, IsFaceError(err):
		c.record(ctx, c.breaker.RecordSuccess())
	case errors.Is(err, ErrUnavailable):
		c.record(ctx, c.breaker.RecordFailure())
	}
	return match, err
}

func (c *HTTPClient) compare(ctx context.Context, docFace, liveFace []byte) (Match, error) {
	body, err := json.Marshal(compareRequest{
		Image1:    base64.StdEncoding.EncodeToString(docFace),
		Image2:    base64.StdEncoding.EncodeToString(liveFace),
		Tolerance: c.tolerance,
	})
	if err != nil {
		return Match{}, fmt.Errorf("marshal compare request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/compare", bytes.NewReader(body))
	if err != nil {
		return Match{}, fmt.Errorf("create compare request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Match{}, ctxErr
		}
		return Match{}, fmt.Errorf("execute compare request: %w: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Match{}, fmt.Errorf("read compare response: %w: %w", err, ErrUnavailable)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return Match{}, fmt.Errorf("face service status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var out compareResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return Match{}, fmt.Errorf("decode compare response (status %d): %w", resp.StatusCode, err)
	}
	if faceErr := errorForType(out.ErrorType); faceErr != nil {
		return Match{}, faceErr
	}
	if resp.StatusCode != http.StatusOK {
		return Match{}, fmt.Errorf("face service status %d", resp.StatusCode)
	}
	if out.Distance == nil {
		return Match{Match: out.Match, Distance: 1}, nil
	}
	return Match{Match: *out.Distance <= c.tolerance, Distance: *out.Distance}, nil
}

func errorForType(t string) error {
	switch t {
	case "":
		return nil
	case "no_face_detected":
		return ErrNoFaceDetected
	case "multiple_faces_detected":
		return ErrMultipleFacesDetected
	default:
		return fmt.Errorf("%s: %w", t, ErrEncodingFailed)
	}
}

func (c *HTTPClient) record(ctx context.Context, change circuit.StateChange) {
	if change.Opened {
		c.logger.WarnContext(ctx, "face service circuit opened", "breaker", c.breaker.Name())
	}
	if change.Closed {
		c.logger.InfoContext(ctx, "face service circuit closed", "breaker", c.breaker.Name())
	}
}
