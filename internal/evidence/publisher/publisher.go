// Package publisher hands confirmed verification requests to the outbox,
// at most once per session.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/evidence/canonical"
	"suiverify/internal/kyc/models"
	"suiverify/internal/platform/metrics"
	"suiverify/internal/platform/tracer"
	"suiverify/internal/sentinel"
	"suiverify/pkg/platform/outbox"
)

const (
	AggregateType = "kyc_session"
	EventType     = "verification_requested"
	StatusPending = "pending_verification"
)

var (
	ErrDuplicatePublication = fmt.Errorf("verification request already published: %w", sentinel.ErrAlreadyUsed)
	ErrHashMismatch         = errors.New("evidence hash does not match request content")
)

// Message is the payload written to the verification request stream.
type Message struct {
	SubjectIdentifier string                         `json:"subject_identifier"`
	DocumentTypeID    string                         `json:"document_type_id"`
	VerificationType  models.VerificationType        `json:"verification_type"`
	DIDID             int                            `json:"did_id"`
	SessionID         string                         `json:"session_id"`
	Fields            map[docmodels.FieldName]string `json:"fields"`
	EvidenceHash      string                         `json:"evidence_hash"`
	RequestTime       time.Time                      `json:"request_time"`
	RequestID         string                         `json:"request_id"`
	Status            string                         `json:"status"`
}

// NewMessage builds the stream message for req.
func NewMessage(req *models.VerificationRequest) Message {
	return Message{
		SubjectIdentifier: req.SubjectIdentifier,
		DocumentTypeID:    req.DocumentTypeID,
		VerificationType:  req.VerificationType,
		DIDID:             req.DIDID,
		SessionID:         req.SessionID,
		Fields:            req.Fields,
		EvidenceHash:      req.EvidenceHash,
		RequestTime:       req.RequestTime,
		RequestID:         req.RequestID,
		Status:            StatusPending,
	}
}

// Publisher appends verification requests to the outbox behind a Guard.
type Publisher struct {
	outbox  outbox.Store
	guard   Guard
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	now     func() time.Time
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(p *Publisher) {
		p.tracer = t
	}
}

func New(store outbox.Store, guard Guard, opts ...Option) *Publisher {
	p := &Publisher{
		outbox: store,
		guard:  guard,
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish checks the frozen hash, claims the guard and appends the request.
// A second call for the same session returns ErrDuplicatePublication.
func (p *Publisher) Publish(ctx context.Context, req *models.VerificationRequest) (err error) {
	ctx, span := p.tracer.Start(ctx, tracer.SpanPublish,
		tracer.String(tracer.AttrSessionID, req.SessionID),
		tracer.String(tracer.AttrEvidenceHash, req.EvidenceHash),
	)
	defer func() { span.End(err) }()

	if got := canonical.EvidenceHash(req); got != req.EvidenceHash {
		p.metrics.IncrementPublication("hash_mismatch")
		return fmt.Errorf("session %s: %w", req.SessionID, ErrHashMismatch)
	}

	claimed, err := p.guard.Claim(ctx, req.SessionID)
	if err != nil {
		p.metrics.IncrementPublication("failed")
		return err
	}
	if !claimed {
		p.metrics.IncrementPublication("duplicate")
		span.SetAttributes(tracer.Bool(tracer.AttrAlreadySent, true))
		return ErrDuplicatePublication
	}

	payload, err := json.Marshal(NewMessage(req))
	if err != nil {
		p.release(ctx, req.SessionID)
		p.metrics.IncrementPublication("failed")
		return fmt.Errorf("marshal verification message: %w", err)
	}
	entry := outbox.NewEntry(AggregateType, req.SessionID, EventType, payload, p.now())
	if err := p.outbox.Append(ctx, entry); err != nil {
		p.release(ctx, req.SessionID)
		p.metrics.IncrementPublication("failed")
		return fmt.Errorf("append verification request: %w", err)
	}

	p.metrics.IncrementPublication("published")
	p.logger.InfoContext(ctx, "verification request queued",
		"session_id", req.SessionID,
		"request_id", req.RequestID,
		"evidence_hash", req.EvidenceHash,
		"outbox_id", entry.ID.String(),
	)
	return nil
}

func (p *Publisher) release(ctx context.Context, sessionID string) {
	if err := p.guard.Release(ctx, sessionID); err != nil {
		p.logger.WarnContext(ctx, "failed to release publish guard", "session_id", sessionID, "error", err)
	}
}
