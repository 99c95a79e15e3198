package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"suiverify/internal/kyc/face"
	"suiverify/internal/kyc/models"
	"suiverify/internal/platform/tracer"
	id "suiverify/pkg/domain"
	dErrors "suiverify/pkg/domain-errors"
)

var ErrNoDocumentPhoto = errors.New("no photo was found on the document")

// RecordFaceMatch compares every live capture with the document photo and
// stores the outcome. A non-match still moves the session to FACE_VERIFIED;
// the outcome travels with the session as data. A capture the face service
// cannot use fails the call with no mutation so the client can retry.
func (s *Service) RecordFaceMatch(ctx context.Context, sessionID id.SessionID, images [][]byte) (*models.Session, error) {
	if len(images) == 0 || len(images) > MaxFaceImages {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("between 1 and %d face images are required", MaxFaceImages))
	}

	session, err := s.loadIn(ctx, sessionID, models.StateDocumentExtracted)
	if err != nil {
		return nil, s.translate(ctx, "record_face_match", err)
	}
	docFace := session.DocumentPhoto()
	if docFace == nil {
		return nil, s.translate(ctx, "record_face_match", ErrNoDocumentPhoto)
	}

	outcome, err := s.compareAll(ctx, sessionID, docFace, images)
	if err != nil {
		return nil, s.translate(ctx, "record_face_match", err)
	}
	return s.storeFaceMatch(ctx, sessionID, outcome)
}

// RecordFaceOutcome stores a face match computed by another component.
func (s *Service) RecordFaceOutcome(ctx context.Context, sessionID id.SessionID, outcome models.FaceMatch) (*models.Session, error) {
	if outcome.Submitted < 1 || outcome.Matched < 0 || outcome.Matched > outcome.Submitted {
		return nil, dErrors.New(dErrors.CodeValidation, "face outcome counts are inconsistent")
	}
	if outcome.Confidence < 0 || outcome.Confidence > 100 {
		return nil, dErrors.New(dErrors.CodeValidation, "face confidence must be within [0, 100]")
	}
	if outcome.ComparedAt.IsZero() {
		outcome.ComparedAt = s.now()
	}
	return s.storeFaceMatch(ctx, sessionID, outcome)
}

func (s *Service) storeFaceMatch(ctx context.Context, sessionID id.SessionID, outcome models.FaceMatch) (*models.Session, error) {
	session, err := s.update(ctx, sessionID,
		moveTo(models.StateFaceVerified),
		func(cur *models.Session, now time.Time) {
			cur.Face = &outcome
			_ = cur.MoveTo(models.StateFaceVerified, now)
		},
	)
	if err != nil {
		return nil, s.translate(ctx, "record_face_match", err)
	}
	s.logger.InfoContext(ctx, "face match recorded",
		"session_id", sessionID.String(),
		"submitted", outcome.Submitted,
		"matched", outcome.Matched,
		"is_match", outcome.IsMatch,
	)
	return session, nil
}

func (s *Service) compareAll(ctx context.Context, sessionID id.SessionID, docFace []byte, images [][]byte) (_ models.FaceMatch, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanFaceCompare,
		tracer.String(tracer.AttrSessionID, sessionID.String()),
		tracer.Int64(tracer.AttrImageBytes, int64(len(docFace))),
	)
	defer func() { span.End(err) }()

	outcome := models.FaceMatch{Submitted: len(images), BestDistance: 1}
	for i, live := range images {
		m, err := s.faces.Compare(ctx, docFace, live)
		if err != nil {
			s.metrics.IncrementFaceComparison(faceOutcomeLabel(err))
			return models.FaceMatch{}, fmt.Errorf("face image %d: %w", i+1, err)
		}
		if m.Match {
			outcome.Matched++
			s.metrics.IncrementFaceComparison("match")
		} else {
			s.metrics.IncrementFaceComparison("no_match")
		}
		outcome.BestDistance = math.Min(outcome.BestDistance, m.Distance)
	}

	outcome.Confidence = math.Max(0, math.Min(100, (1-outcome.BestDistance)*100))
	outcome.IsMatch = s.isMatch(outcome)
	outcome.ComparedAt = s.now()
	span.SetAttributes(
		tracer.Bool(tracer.AttrFaceMatch, outcome.IsMatch),
		tracer.Float64(tracer.AttrConfidence, outcome.Confidence),
	)
	return outcome, nil
}

// isMatch needs MinFaceMatches once MinFaceImages were submitted, and every
// capture to match below that.
func (s *Service) isMatch(m models.FaceMatch) bool {
	if m.Submitted >= s.cfg.MinFaceImages {
		return m.Matched >= s.cfg.MinFaceMatches
	}
	return m.Matched == m.Submitted
}

func faceOutcomeLabel(err error) string {
	switch {
	case errors.Is(err, face.ErrNoFaceDetected):
		return "no_face"
	case errors.Is(err, face.ErrMultipleFacesDetected):
		return "multiple_faces"
	case errors.Is(err, face.ErrEncodingFailed):
		return "encoding_failed"
	case errors.Is(err, face.ErrUnavailable):
		return "unavailable"
	}
	return "error"
}
