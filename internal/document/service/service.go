// Package service orchestrates one document extraction: decode, preprocess,
// run the OCR ensemble, then extract fields and the photo.
package service

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"suiverify/internal/document/extract"
	"suiverify/internal/document/imaging"
	"suiverify/internal/document/models"
	"suiverify/internal/document/ocr"
	"suiverify/internal/document/photo"
	"suiverify/internal/platform/metrics"
	"suiverify/internal/platform/privacy"
	"suiverify/internal/platform/tracer"
	dErrors "suiverify/pkg/domain-errors"
)

// Recognizer runs the OCR ensemble over preprocessed variants.
type Recognizer interface {
	Run(ctx context.Context, variants []imaging.Variant) ([]ocr.Candidate, error)
}

// Option configures the Service.
type Option func(*Service)

// Service extracts PAN card data from uploaded images.
type Service struct {
	ocr     Recognizer
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	now     func() time.Time
}

// New creates an extraction service over the given recognizer.
func New(recognizer Recognizer, opts ...Option) *Service {
	svc := &Service{
		ocr:    recognizer,
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithClock overrides the clock used to bound dates of birth.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Extract runs the full pipeline. A partial result is not an error; only an
// undecodable image or an unavailable OCR engine fail the call.
func (s *Service) Extract(ctx context.Context, raw models.RawImage) (_ *models.Result, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanExtract, tracer.Int64(tracer.AttrImageBytes, int64(len(raw.Data))))
	defer func() { span.End(err) }()

	img, err := imaging.Decode(raw)
	if err != nil {
		s.metrics.ObserveExtraction(time.Since(start).Seconds(), "failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "document image could not be decoded")
	}

	candidates, err := s.ocr.Run(ctx, imaging.Preprocess(img))
	if err != nil {
		s.metrics.ObserveExtraction(time.Since(start).Seconds(), "failed")
		if errors.Is(err, ocr.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "text recognition unavailable")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "extraction cancelled")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "text recognition failed")
	}

	var (
		fields extract.Fields
		region models.PhotoRegion
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		fields = extract.ExtractAt(candidates, s.now())
		return nil
	})
	g.Go(func() error {
		region = photo.Extract(img)
		return nil
	})
	_ = g.Wait()

	result := s.assemble(fields, region, candidates)
	s.record(ctx, result, time.Since(start))
	span.SetAttributes(
		tracer.Float64(tracer.AttrSuccessRatio, result.SuccessRatio),
		tracer.Int64(tracer.AttrCandidates, int64(result.CandidateCount)),
		tracer.String(tracer.AttrDocumentHash, tracer.HashIdentifier(result.Value(models.FieldDocumentNumber))),
	)
	return result, nil
}

func (s *Service) assemble(fields extract.Fields, region models.PhotoRegion, candidates []ocr.Candidate) *models.Result {
	result := &models.Result{
		DocumentType:   models.DocumentTypePAN,
		Fields:         fields,
		SuccessRatio:   extract.Score(fields, models.Fields()),
		CandidateCount: len(candidates),
	}
	if len(candidates) > 0 {
		result.RawText = candidates[0].Text
	}
	if region.Found || region.Bounds != (image.Rectangle{}) {
		result.Photo = &region
	}
	return result
}

func (s *Service) record(ctx context.Context, result *models.Result, elapsed time.Duration) {
	outcome := "partial"
	switch result.SuccessRatio {
	case 1:
		outcome = "complete"
	case 0:
		outcome = "empty"
	}
	s.metrics.ObserveExtraction(elapsed.Seconds(), outcome)
	s.metrics.ObserveSuccessRatio(result.SuccessRatio)
	for _, name := range models.Fields() {
		_, hit := result.Fields[name]
		s.metrics.IncrementFieldHit(string(name), hit)
	}

	s.logger.InfoContext(ctx, "document extracted",
		"document_number", privacy.MaskDocumentNumber(result.Value(models.FieldDocumentNumber)),
		"success_ratio", result.SuccessRatio,
		"candidates", result.CandidateCount,
		"photo_found", result.Photo != nil && result.Photo.Found,
		"duration_ms", elapsed.Milliseconds(),
	)
}
