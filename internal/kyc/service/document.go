package service

import (
	"context"
	"time"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/kyc/models"
	id "suiverify/pkg/domain"
)

// SubmitDocument extracts the document and stores the result. Extraction runs
// outside the session lock; the state is checked again before the write. A
// failed extraction leaves the session INITIATED.
func (s *Service) SubmitDocument(ctx context.Context, sessionID id.SessionID, raw docmodels.RawImage) (*models.Session, error) {
	if _, err := s.loadIn(ctx, sessionID, models.StateInitiated); err != nil {
		return nil, s.translate(ctx, "submit_document", err)
	}

	result, err := s.extractor.Extract(ctx, raw)
	if err != nil {
		return nil, s.translate(ctx, "submit_document", err)
	}

	session, err := s.update(ctx, sessionID,
		moveTo(models.StateDocumentExtracted),
		func(cur *models.Session, now time.Time) {
			cur.Extraction = result
			_ = cur.MoveTo(models.StateDocumentExtracted, now)
		},
	)
	if err != nil {
		return nil, s.translate(ctx, "submit_document", err)
	}
	s.logger.InfoContext(ctx, "document attached to session",
		"session_id", sessionID.String(),
		"success_ratio", result.SuccessRatio,
		"photo_found", session.DocumentPhoto() != nil,
	)
	return session, nil
}
