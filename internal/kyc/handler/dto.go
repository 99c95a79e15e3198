package handler

import (
	"strings"
	"time"

	dochandler "suiverify/internal/document/handler"
	docmodels "suiverify/internal/document/models"
	"suiverify/internal/kyc/models"
	"suiverify/internal/kyc/service"
	dErrors "suiverify/pkg/domain-errors"
)

type StartSessionRequest struct {
	SubjectID        string `json:"subject_id"`
	VerificationType string `json:"verification_type"`
}

func (r *StartSessionRequest) Normalize() {
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.VerificationType = strings.ToLower(strings.TrimSpace(r.VerificationType))
}

func (r *StartSessionRequest) Validate() error {
	if r.SubjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	if !models.VerificationType(r.VerificationType).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "verification_type must be above18 or citizenship")
	}
	return nil
}

// CorrectionRequest carries the overrides for the open round.
type CorrectionRequest struct {
	Fields map[docmodels.FieldName]string `json:"fields"`
}

func (r *CorrectionRequest) Validate() error {
	if len(r.Fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "fields must not be empty")
	}
	return nil
}

type VerifierView struct {
	Success    bool      `json:"success"`
	Signature  string    `json:"signature,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// SessionResponse is the public view of a session. The document photo and
// OCR text are never returned.
type SessionResponse struct {
	SessionID        string                         `json:"session_id"`
	SubjectID        string                         `json:"subject_id"`
	VerificationType string                         `json:"verification_type"`
	State            string                         `json:"state"`
	CreatedAt        time.Time                      `json:"created_at"`
	UpdatedAt        time.Time                      `json:"updated_at"`
	ExpiresAt        time.Time                      `json:"expires_at"`
	Extraction       *dochandler.ResultView         `json:"extraction,omitempty"`
	Resolved         map[docmodels.FieldName]string `json:"resolved_fields,omitempty"`
	Face             *models.FaceMatch              `json:"face,omitempty"`
	CorrectionRound  int                            `json:"correction_round"`
	EvidenceHash     string                         `json:"evidence_hash,omitempty"`
	Verifier         *VerifierView                  `json:"verifier,omitempty"`
}

func NewSessionResponse(s *models.Session) *SessionResponse {
	resp := &SessionResponse{
		SessionID:        s.ID.String(),
		SubjectID:        s.SubjectID,
		VerificationType: string(s.VerificationType),
		State:            string(s.State),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		ExpiresAt:        s.ExpiresAt,
		Extraction:       dochandler.NewResultView(s.Extraction, false),
		Face:             s.Face,
		CorrectionRound:  s.CorrectionRound,
	}
	if s.Extraction != nil {
		resp.Resolved = s.ResolvedFields()
	}
	if s.Request != nil {
		resp.EvidenceHash = s.Request.EvidenceHash
	}
	if s.Verifier != nil {
		resp.Verifier = &VerifierView{
			Success:    s.Verifier.Success,
			Signature:  s.Verifier.Signature,
			ReceivedAt: s.Verifier.ReceivedAt,
		}
	}
	return resp
}

type ConfirmResponse struct {
	Session          *SessionResponse `json:"session"`
	RequestID        string           `json:"request_id"`
	EvidenceHash     string           `json:"evidence_hash"`
	DIDID            int              `json:"did_id"`
	AlreadyPublished bool             `json:"already_published"`
}

func NewConfirmResponse(res *service.PublishResult) *ConfirmResponse {
	out := &ConfirmResponse{
		Session:          NewSessionResponse(res.Session),
		AlreadyPublished: res.AlreadyPublished,
	}
	if res.Request != nil {
		out.RequestID = res.Request.RequestID
		out.EvidenceHash = res.Request.EvidenceHash
		out.DIDID = res.Request.DIDID
	}
	return out
}
