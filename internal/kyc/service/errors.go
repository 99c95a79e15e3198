package service

import (
	"context"
	"errors"

	"suiverify/internal/evidence/publisher"
	"suiverify/internal/kyc/face"
	"suiverify/internal/kyc/models"
	"suiverify/internal/sentinel"
	dErrors "suiverify/pkg/domain-errors"
)

// Session error handling: translates store, collaborator and sentinel errors
// into domain errors exactly once.

type errorMapping struct {
	match  error
	code   dErrors.Code
	msg    string // empty = use err.Error()
	reason string
}

// errorMappings are checked in order; more specific errors come first.
var errorMappings = []errorMapping{
	{models.ErrSessionExpired, dErrors.CodeExpired, "session expired", "expired"},
	{models.ErrCorrectionLimitReached, dErrors.CodeInvalidState, "", "correction_limit"},
	{models.ErrInvalidState, dErrors.CodeInvalidState, "", "invalid_state"},
	{face.ErrNoFaceDetected, dErrors.CodeUnprocessable, "", "no_face"},
	{face.ErrMultipleFacesDetected, dErrors.CodeUnprocessable, "", "multiple_faces"},
	{face.ErrEncodingFailed, dErrors.CodeUnprocessable, "", "encoding_failed"},
	{ErrNoDocumentPhoto, dErrors.CodeUnprocessable, "no photo was found on the document", "no_document_photo"},
	{ErrEvidenceMismatch, dErrors.CodeInvariantViolation, "evidence hash mismatch", "evidence_mismatch"},
	{publisher.ErrHashMismatch, dErrors.CodeInvariantViolation, "evidence hash mismatch", "evidence_mismatch"},
	{sentinel.ErrNotFound, dErrors.CodeNotFound, "session not found", "not_found"},
	{sentinel.ErrConflict, dErrors.CodeConflict, "session was modified concurrently, retry", "conflict"},
	{sentinel.ErrUnavailable, dErrors.CodeUnavailable, "a required service is unavailable", "unavailable"},
	{context.DeadlineExceeded, dErrors.CodeTimeout, "operation timed out", "timeout"},
	{context.Canceled, dErrors.CodeTimeout, "operation cancelled", "cancelled"},
}

func (s *Service) translate(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var de *dErrors.Error
	if errors.As(err, &de) {
		s.logger.WarnContext(ctx, "kyc operation failed", "op", op, "reason", string(de.Code), "error", err)
		return err
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.match) {
			msg := m.msg
			if msg == "" {
				msg = err.Error()
			}
			s.logger.WarnContext(ctx, "kyc operation failed", "op", op, "reason", m.reason, "error", err)
			return dErrors.Wrap(err, m.code, msg)
		}
	}

	s.logger.ErrorContext(ctx, "kyc operation failed", "op", op, "reason", "internal_error", "error", err)
	return dErrors.Wrap(err, dErrors.CodeInternal, "kyc operation failed")
}
