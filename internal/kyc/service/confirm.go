package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/evidence/canonical"
	"suiverify/internal/evidence/publisher"
	"suiverify/internal/kyc/models"
	"suiverify/internal/platform/tracer"
	id "suiverify/pkg/domain"
	dErrors "suiverify/pkg/domain-errors"
)

// PublishResult reports the hand-off of a confirmed session.
type PublishResult struct {
	Session          *models.Session
	Request          *models.VerificationRequest
	AlreadyPublished bool
}

// Confirm freezes the resolved fields into a VerificationRequest and its
// evidence hash. The session then lives for the pending TTL so publication
// can be retried.
func (s *Service) Confirm(ctx context.Context, sessionID id.SessionID) (_ *models.VerificationRequest, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConfirm, tracer.String(tracer.AttrSessionID, sessionID.String()))
	defer func() { span.End(err) }()

	var req *models.VerificationRequest
	session, err := s.update(ctx, sessionID,
		func(cur *models.Session, now time.Time) error {
			if err := cur.CanMoveTo(models.StateConfirmed); err != nil {
				return err
			}
			built, err := buildRequest(cur, now)
			if err != nil {
				return err
			}
			req = built
			return nil
		},
		func(cur *models.Session, now time.Time) {
			cur.Request = req
			_ = cur.MoveTo(models.StateConfirmed, now)
			cur.ExpiresAt = now.Add(s.cfg.PendingTTL)
		},
	)
	if err != nil {
		return nil, s.translate(ctx, "confirm", err)
	}
	span.SetAttributes(tracer.String(tracer.AttrEvidenceHash, session.Request.EvidenceHash))
	s.logger.InfoContext(ctx, "session confirmed",
		"session_id", sessionID.String(),
		"request_id", session.Request.RequestID,
		"evidence_hash", session.Request.EvidenceHash,
	)
	return session.Request, nil
}

func buildRequest(session *models.Session, now time.Time) (*models.VerificationRequest, error) {
	fields := session.ResolvedFields()
	if fields[docmodels.FieldDocumentNumber] == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document number is required before confirmation")
	}
	if session.VerificationType == models.VerificationAbove18 {
		dob := fields[docmodels.FieldDateOfBirth]
		if dob == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "date of birth is required for above18 verification")
		}
		birth, err := id.ParseBirthDate(dob)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "date of birth is not a valid date")
		}
		if !id.IsOver18(birth, now) {
			return nil, dErrors.New(dErrors.CodeValidation, "date of birth does not satisfy above18")
		}
	}

	documentType := docmodels.DocumentTypePAN
	if session.Extraction != nil && session.Extraction.DocumentType != "" {
		documentType = session.Extraction.DocumentType
	}
	req := &models.VerificationRequest{
		SessionID:         session.ID.String(),
		SubjectIdentifier: session.SubjectID,
		DocumentTypeID:    documentType,
		VerificationType:  session.VerificationType,
		DIDID:             session.VerificationType.DIDID(),
		Fields:            fields,
		RequestTime:       now,
		RequestID:         id.NewRequestID().String(),
		Nonce:             uuid.NewString(),
	}
	req.EvidenceHash = canonical.EvidenceHash(req)
	return req, nil
}

// Publish hands the confirmed request to the publisher and moves the session
// to PENDING_EXTERNAL_VERIFICATION with the pending TTL. Sessions already
// handed off report AlreadyPublished without error.
func (s *Service) Publish(ctx context.Context, sessionID id.SessionID) (*PublishResult, error) {
	s.locks.Lock(sessionID.String())
	defer s.locks.Unlock(sessionID.String())

	now := s.now()
	session, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, s.translate(ctx, "publish", err)
	}
	switch {
	case session.State == models.StateExpired:
		return nil, s.translate(ctx, "publish", models.ErrSessionExpired)
	case session.State == models.StatePendingExternalVerification,
		session.State == models.StateVerified,
		session.State == models.StateRejected:
		return &PublishResult{Session: session, Request: session.Request, AlreadyPublished: true}, nil
	case session.IsExpired(now):
		s.markExpired(ctx, sessionID, now)
		return nil, s.translate(ctx, "publish", models.ErrSessionExpired)
	case session.State != models.StateConfirmed || session.Request == nil:
		return nil, s.translate(ctx, "publish", fmt.Errorf("session is %s: %w", session.State, models.ErrInvalidState))
	}

	already := false
	if err := s.publisher.Publish(ctx, session.Request); err != nil {
		if !errors.Is(err, publisher.ErrDuplicatePublication) {
			return nil, s.translate(ctx, "publish", err)
		}
		already = true
	}

	updated, err := s.store.Execute(ctx, sessionID,
		func(cur *models.Session) error { return cur.CanMoveTo(models.StatePendingExternalVerification) },
		func(cur *models.Session) {
			_ = cur.MoveTo(models.StatePendingExternalVerification, now)
			cur.ExpiresAt = now.Add(s.cfg.PendingTTL)
		},
	)
	if err != nil {
		return nil, s.translate(ctx, "publish", err)
	}
	s.metrics.IncrementTransition(string(updated.State))
	s.logger.InfoContext(ctx, "verification request handed off",
		"session_id", sessionID.String(),
		"request_id", updated.Request.RequestID,
		"already_published", already,
	)
	return &PublishResult{Session: updated, Request: updated.Request, AlreadyPublished: already}, nil
}

// ConfirmAndPublish confirms when needed, then publishes. A retry after a
// failed publish skips straight to publishing. Losing a confirm race to
// another caller is not an error; Publish rechecks the state.
func (s *Service) ConfirmAndPublish(ctx context.Context, sessionID id.SessionID) (*PublishResult, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == models.StateFaceVerified || session.State == models.StateCorrected {
		if _, err := s.Confirm(ctx, sessionID); err != nil && !dErrors.HasCode(err, dErrors.CodeInvalidState) {
			return nil, err
		}
	}
	return s.Publish(ctx, sessionID)
}
