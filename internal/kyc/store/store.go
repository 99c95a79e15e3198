// Package store persists KYC sessions. Both implementations serialize through
// the same JSON representation so callers never share memory with the store.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/kyc/models"
	id "suiverify/pkg/domain"
)

// Store is the session persistence port.
//
// Error contract:
//   - FindByID and Execute return an error wrapping sentinel.ErrNotFound for unknown ids
//   - Execute returns the validate error unchanged and skips mutate
//   - Execute returns ErrConflict when a concurrent writer won the race
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)
}

// sessionJSON is the stored representation of a Session.
type sessionJSON struct {
	ID               string                      `json:"id"`
	SubjectID        string                      `json:"subject_id"`
	VerificationType string                      `json:"verification_type"`
	State            string                      `json:"state"`
	CreatedAt        int64                       `json:"created_at"` // Unix nano
	UpdatedAt        int64                       `json:"updated_at"` // Unix nano
	ExpiresAt        int64                       `json:"expires_at"` // Unix nano
	Extraction       *docmodels.Result           `json:"extraction,omitempty"`
	Face             *models.FaceMatch           `json:"face,omitempty"`
	CorrectionRound  int                         `json:"correction_round"`
	Corrections      []models.Correction         `json:"corrections,omitempty"`
	Request          *models.VerificationRequest `json:"request,omitempty"`
	Verifier         *models.VerifierOutcome     `json:"verifier,omitempty"`
}

func encode(s *models.Session) ([]byte, error) {
	data, err := json.Marshal(sessionJSON{
		ID:               s.ID.String(),
		SubjectID:        s.SubjectID,
		VerificationType: string(s.VerificationType),
		State:            string(s.State),
		CreatedAt:        s.CreatedAt.UnixNano(),
		UpdatedAt:        s.UpdatedAt.UnixNano(),
		ExpiresAt:        s.ExpiresAt.UnixNano(),
		Extraction:       s.Extraction,
		Face:             s.Face,
		CorrectionRound:  s.CorrectionRound,
		Corrections:      s.Corrections,
		Request:          s.Request,
		Verifier:         s.Verifier,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*models.Session, error) {
	var j sessionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	sessionID, err := id.ParseSessionID(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	return &models.Session{
		ID:               sessionID,
		SubjectID:        j.SubjectID,
		VerificationType: models.VerificationType(j.VerificationType),
		State:            models.State(j.State),
		CreatedAt:        time.Unix(0, j.CreatedAt).UTC(),
		UpdatedAt:        time.Unix(0, j.UpdatedAt).UTC(),
		ExpiresAt:        time.Unix(0, j.ExpiresAt).UTC(),
		Extraction:       j.Extraction,
		Face:             j.Face,
		CorrectionRound:  j.CorrectionRound,
		Corrections:      j.Corrections,
		Request:          j.Request,
		Verifier:         j.Verifier,
	}, nil
}
