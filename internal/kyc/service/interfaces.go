package service

import (
	"context"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/kyc/face"
	"suiverify/internal/kyc/models"
	id "suiverify/pkg/domain"
)

// Extractor runs the document extraction pipeline. Errors are domain errors.
type Extractor interface {
	Extract(ctx context.Context, raw docmodels.RawImage) (*docmodels.Result, error)
}

// FaceComparer compares the document photo with one live capture.
type FaceComparer interface {
	Compare(ctx context.Context, docFace, liveFace []byte) (face.Match, error)
}

// Publisher hands a confirmed request downstream.
// Error Contract: returns publisher.ErrDuplicatePublication when the session was already handed off.
type Publisher interface {
	Publish(ctx context.Context, req *models.VerificationRequest) error
}

// Store persists sessions.
// Error Contract: FindByID and Execute wrap sentinel.ErrNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)
}
