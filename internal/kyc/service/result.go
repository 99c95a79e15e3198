package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"suiverify/internal/kyc/models"
	"suiverify/internal/platform/tracer"
	id "suiverify/pkg/domain"
)

var ErrEvidenceMismatch = errors.New("verifier result evidence hash does not match the published request")

var errResultAlreadyApplied = errors.New("result already applied")

// ApplyResult stores the verifier's answer. A redelivered result matching the
// stored outcome is a no-op.
func (s *Service) ApplyResult(ctx context.Context, result models.VerificationResult) (_ *models.Session, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanApplyResult, tracer.String(tracer.AttrSessionID, result.SessionID))
	defer func() { span.End(err) }()

	sessionID, err := id.ParseSessionID(result.SessionID)
	if err != nil {
		return nil, err
	}

	target := models.StateRejected
	if result.Success {
		target = models.StateVerified
	}

	var current *models.Session
	session, err := s.update(ctx, sessionID,
		func(cur *models.Session, _ time.Time) error {
			if cur.State == target && cur.Verifier != nil {
				current = cur
				return errResultAlreadyApplied
			}
			if err := cur.CanMoveTo(target); err != nil {
				return err
			}
			if cur.Request == nil {
				return fmt.Errorf("no request on session: %w", models.ErrInvalidState)
			}
			if result.EvidenceHash != "" && result.EvidenceHash != cur.Request.EvidenceHash {
				return ErrEvidenceMismatch
			}
			return nil
		},
		func(cur *models.Session, now time.Time) {
			cur.Verifier = &models.VerifierOutcome{
				Success:    result.Success,
				Response:   result.Response,
				Signature:  result.Signature,
				ReceivedAt: now,
			}
			_ = cur.MoveTo(target, now)
		},
	)
	if errors.Is(err, errResultAlreadyApplied) {
		s.metrics.IncrementVerificationResult("duplicate")
		s.logger.InfoContext(ctx, "duplicate verifier result ignored", "session_id", result.SessionID)
		return current, nil
	}
	if err != nil {
		s.metrics.IncrementVerificationResult("rejected_result")
		return nil, s.translate(ctx, "apply_result", err)
	}

	s.metrics.IncrementVerificationResult(string(target))
	s.logger.InfoContext(ctx, "verifier result applied",
		"session_id", result.SessionID,
		"state", string(session.State),
		"signed", result.Signature != "",
	)
	return session, nil
}
