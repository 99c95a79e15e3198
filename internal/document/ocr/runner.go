package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"suiverify/internal/document/imaging"
	"suiverify/internal/platform/metrics"
	"suiverify/internal/platform/tracer"
)

// Runner dispatches the variant × profile matrix to an Engine.
type Runner struct {
	engine      Engine
	profiles    []Profile
	concurrency int
	callTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

func WithProfiles(p []Profile) Option {
	return func(r *Runner) {
		if len(p) > 0 {
			r.profiles = p
		}
	}
}

// WithConcurrency bounds in-flight engine calls.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithCallTimeout bounds each engine call.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.callTimeout = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(r *Runner) {
		r.tracer = t
	}
}

// NewRunner creates a runner over DefaultProfiles.
func NewRunner(engine Engine, opts ...Option) *Runner {
	r := &Runner{
		engine:      engine,
		profiles:    DefaultProfiles(),
		concurrency: 4,
		logger:      slog.Default(),
		tracer:      tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Profiles returns the configured profiles in matrix order.
func (r *Runner) Profiles() []Profile {
	return r.profiles
}

// Run recognizes every (variant, profile) pair. Failed and blank entries are
// skipped; the survivors keep matrix order regardless of completion order.
func (r *Runner) Run(ctx context.Context, variants []imaging.Variant) (_ []Candidate, err error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanOCRRun)
	defer func() { span.End(err) }()

	slots := make([]*Candidate, len(variants)*len(r.profiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for vi, v := range variants {
		for pi, p := range r.profiles {
			attempt := vi*len(r.profiles) + pi
			g.Go(func() error {
				// Entries never fail the group; only cancellation stops it.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slots[attempt] = r.recognize(gctx, v, p, attempt)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	span.SetAttributes(tracer.Int64(tracer.AttrCandidates, int64(len(candidates))))

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %d entries", ErrUnavailable, len(slots))
	}
	return candidates, nil
}

func (r *Runner) recognize(ctx context.Context, v imaging.Variant, p Profile, attempt int) *Candidate {
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	ctx, span := r.tracer.Start(ctx, tracer.SpanOCRCall,
		tracer.String(tracer.AttrVariant, string(v.ID)),
		tracer.String(tracer.AttrProfile, string(p.ID)),
	)
	text, err := r.engine.Recognize(ctx, v.Image, p)
	span.End(err)
	if err != nil {
		r.logger.DebugContext(ctx, "ocr entry failed",
			"variant", v.ID, "profile", p.ID, "error", err)
		r.metrics.IncrementOCRCandidate(string(v.ID), "failed")
		return nil
	}
	if strings.TrimSpace(text) == "" {
		r.metrics.IncrementOCRCandidate(string(v.ID), "empty")
		return nil
	}
	r.metrics.IncrementOCRCandidate(string(v.ID), "ok")
	return &Candidate{Profile: p.ID, Variant: v.ID, Text: text, Attempt: attempt}
}
