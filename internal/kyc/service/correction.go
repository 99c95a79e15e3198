package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/document/extract"
	"suiverify/internal/kyc/models"
	id "suiverify/pkg/domain"
	dErrors "suiverify/pkg/domain-errors"
)

// RequestCorrection opens the next correction round.
func (s *Service) RequestCorrection(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, err := s.update(ctx, sessionID,
		func(cur *models.Session, _ time.Time) error {
			if err := cur.CanMoveTo(models.StateAwaitingCorrection); err != nil {
				return err
			}
			if cur.CorrectionRound >= s.cfg.MaxCorrectionRounds {
				return fmt.Errorf("%d of %d rounds used: %w", cur.CorrectionRound, s.cfg.MaxCorrectionRounds, models.ErrCorrectionLimitReached)
			}
			return nil
		},
		func(cur *models.Session, now time.Time) {
			cur.CorrectionRound++
			_ = cur.MoveTo(models.StateAwaitingCorrection, now)
		},
	)
	if err != nil {
		return nil, s.translate(ctx, "request_correction", err)
	}
	s.logger.InfoContext(ctx, "correction round opened",
		"session_id", sessionID.String(),
		"round", session.CorrectionRound,
	)
	return session, nil
}

// SubmitCorrection validates every value with the extractor's validators and
// records the round. One invalid value rejects the whole submission and the
// session stays AWAITING_CORRECTION.
func (s *Service) SubmitCorrection(ctx context.Context, sessionID id.SessionID, values map[docmodels.FieldName]string) (*models.Session, error) {
	normalized, verr := normalizeCorrection(values, s.now())

	session, err := s.update(ctx, sessionID,
		func(cur *models.Session, _ time.Time) error {
			if err := cur.CanMoveTo(models.StateCorrected); err != nil {
				return err
			}
			return verr
		},
		func(cur *models.Session, now time.Time) {
			cur.Corrections = append(cur.Corrections, models.Correction{
				Round:       cur.CorrectionRound,
				Values:      normalized,
				SubmittedAt: now,
			})
			_ = cur.MoveTo(models.StateCorrected, now)
		},
	)
	if err != nil {
		return nil, s.translate(ctx, "submit_correction", err)
	}
	fields := make([]string, 0, len(normalized))
	for name := range normalized {
		fields = append(fields, string(name))
	}
	slices.Sort(fields)
	s.logger.InfoContext(ctx, "correction submitted",
		"session_id", sessionID.String(),
		"round", session.CorrectionRound,
		"fields", fields,
	)
	return session, nil
}

func normalizeCorrection(values map[docmodels.FieldName]string, now time.Time) (map[docmodels.FieldName]string, error) {
	if len(values) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one corrected field is required")
	}
	out := make(map[docmodels.FieldName]string, len(values))
	var invalid []string
	for name, value := range values {
		if !name.IsKnown() {
			invalid = append(invalid, string(name)+" (unknown field)")
			continue
		}
		v, ok := extract.Validate(name, value, now)
		if !ok {
			invalid = append(invalid, string(name))
			continue
		}
		out[name] = v
	}
	if len(invalid) > 0 {
		slices.Sort(invalid)
		return nil, dErrors.New(dErrors.CodeValidation, "invalid correction: "+strings.Join(invalid, ", "))
	}
	return out, nil
}
