// Package models defines the KYC session aggregate and its state machine.
package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/sentinel"
	id "suiverify/pkg/domain"
)

// State is the lifecycle position of a session.
type State string

const (
	StateInitiated                   State = "INITIATED"
	StateDocumentExtracted           State = "DOCUMENT_EXTRACTED"
	StateFaceVerified                State = "FACE_VERIFIED"
	StateAwaitingCorrection          State = "AWAITING_CORRECTION"
	StateCorrected                   State = "CORRECTED"
	StateConfirmed                   State = "CONFIRMED"
	StatePendingExternalVerification State = "PENDING_EXTERNAL_VERIFICATION"
	StateVerified                    State = "VERIFIED"
	StateRejected                    State = "REJECTED"
	StateExpired                     State = "EXPIRED"
)

var transitions = map[State][]State{
	StateInitiated:                   {StateDocumentExtracted},
	StateDocumentExtracted:           {StateFaceVerified},
	StateFaceVerified:                {StateAwaitingCorrection, StateConfirmed},
	StateAwaitingCorrection:          {StateCorrected},
	StateCorrected:                   {StateAwaitingCorrection, StateConfirmed},
	StateConfirmed:                   {StatePendingExternalVerification},
	StatePendingExternalVerification: {StateVerified, StateRejected},
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateVerified || s == StateRejected || s == StateExpired
}

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	_, ok := transitions[s]
	return ok || s.IsTerminal()
}

// CanTransition reports whether from may move to to. Every non-terminal
// state may expire.
func CanTransition(from, to State) bool {
	if to == StateExpired {
		return from.IsValid() && !from.IsTerminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// VerificationType selects the claim the verifier attests.
type VerificationType string

const (
	VerificationAbove18     VerificationType = "above18"
	VerificationCitizenship VerificationType = "citizenship"
)

func (v VerificationType) IsValid() bool {
	return v == VerificationAbove18 || v == VerificationCitizenship
}

// DIDID is the on-chain credential type index.
func (v VerificationType) DIDID() int {
	if v == VerificationCitizenship {
		return 1
	}
	return 0
}

var (
	ErrInvalidState           = fmt.Errorf("invalid session state: %w", sentinel.ErrInvalidState)
	ErrSessionExpired         = fmt.Errorf("session expired: %w", sentinel.ErrExpired)
	ErrCorrectionLimitReached = fmt.Errorf("correction limit reached: %w", sentinel.ErrInvalidState)
)

// FaceMatch summarizes the comparison of live images against the document photo.
type FaceMatch struct {
	Submitted    int       `json:"submitted"`
	Matched      int       `json:"matched"`
	BestDistance float64   `json:"best_distance"`
	Confidence   float64   `json:"confidence"`
	IsMatch      bool      `json:"is_match"`
	ComparedAt   time.Time `json:"compared_at"`
}

// Correction is one round of user supplied overrides.
type Correction struct {
	Round       int                            `json:"round"`
	Values      map[docmodels.FieldName]string `json:"values"`
	SubmittedAt time.Time                      `json:"submitted_at"`
}

// VerificationRequest is handed to the external verifier once the user
// confirms. It is immutable after Confirm.
type VerificationRequest struct {
	SessionID         string                         `json:"session_id"`
	SubjectIdentifier string                         `json:"subject_identifier"`
	DocumentTypeID    string                         `json:"document_type_id"`
	VerificationType  VerificationType               `json:"verification_type"`
	DIDID             int                            `json:"did_id"`
	Fields            map[docmodels.FieldName]string `json:"fields"`
	EvidenceHash      string                         `json:"evidence_hash"`
	RequestTime       time.Time                      `json:"request_time"`
	RequestID         string                         `json:"request_id"`
	Nonce             string                         `json:"nonce"`
}

// VerificationResult is the verifier's answer for a session.
type VerificationResult struct {
	SessionID    string          `json:"session_id"`
	Success      bool            `json:"success"`
	Response     json.RawMessage `json:"response,omitempty"`
	Signature    string          `json:"signature,omitempty"`
	EvidenceHash string          `json:"evidence_hash,omitempty"`
}

// VerifierOutcome is the stored verifier result.
type VerifierOutcome struct {
	Success    bool            `json:"success"`
	Response   json.RawMessage `json:"response,omitempty"`
	Signature  string          `json:"signature,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Session is the KYC aggregate.
type Session struct {
	ID               id.SessionID
	SubjectID        string
	VerificationType VerificationType
	State            State
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ExpiresAt        time.Time

	Extraction *docmodels.Result
	Face       *FaceMatch

	// CorrectionRound is the number of rounds opened so far.
	CorrectionRound int
	Corrections     []Correction

	Request  *VerificationRequest
	Verifier *VerifierOutcome
}

// NewSession creates an INITIATED session expiring after ttl.
func NewSession(subjectID string, vt VerificationType, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:               id.NewSessionID(),
		SubjectID:        subjectID,
		VerificationType: vt,
		State:            StateInitiated,
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}
}

// IsExpired reports whether a live session has outlived its TTL.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.State.IsTerminal() && !now.Before(s.ExpiresAt)
}

// CanMoveTo returns ErrInvalidState unless to is reachable from the current state.
func (s *Session) CanMoveTo(to State) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("%s -> %s: %w", s.State, to, ErrInvalidState)
	}
	return nil
}

// MoveTo applies a checked transition.
func (s *Session) MoveTo(to State, now time.Time) error {
	if err := s.CanMoveTo(to); err != nil {
		return err
	}
	s.State = to
	s.UpdatedAt = now
	return nil
}

// ResolvedFields overlays the corrections, in round order, on the extracted values.
func (s *Session) ResolvedFields() map[docmodels.FieldName]string {
	out := map[docmodels.FieldName]string{}
	if s.Extraction != nil {
		for name, f := range s.Extraction.Fields {
			if f.Valid && f.Value != "" {
				out[name] = f.Value
			}
		}
	}
	for _, c := range s.Corrections {
		maps.Copy(out, c.Values)
	}
	return out
}

// DocumentPhoto returns the cropped document photo, if one was found.
func (s *Session) DocumentPhoto() []byte {
	if s.Extraction == nil || s.Extraction.Photo == nil || !s.Extraction.Photo.Found {
		return nil
	}
	return s.Extraction.Photo.JPEG
}
