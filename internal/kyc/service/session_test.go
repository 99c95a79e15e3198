package service

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/kyc/face"
	"suiverify/internal/kyc/models"
	"suiverify/internal/kyc/service/mocks"
	id "suiverify/pkg/domain"
	dErrors "suiverify/pkg/domain-errors"
)

func (s *ServiceSuite) TestStart() {
	session, err := s.service.Start(context.Background(), StartRequest{SubjectID: "0xabc", VerificationType: models.VerificationCitizenship})
	s.Require().NoError(err)
	s.Equal(models.StateInitiated, session.State)
	s.Equal(s.now.Add(5*time.Minute), session.ExpiresAt)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SessionsStarted))
}

func (s *ServiceSuite) TestStartValidation() {
	_, err := s.service.Start(context.Background(), StartRequest{VerificationType: models.VerificationAbove18})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Start(context.Background(), StartRequest{SubjectID: "0xabc", VerificationType: "over21"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestGetUnknownSession() {
	_, err := s.service.Get(context.Background(), id.NewSessionID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestGetExpiresLazily() {
	sessionID := s.started(models.VerificationAbove18)
	s.advance(6 * time.Minute)

	_, err := s.service.Get(context.Background(), sessionID)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	s.Equal(models.StateExpired, s.stored(sessionID).State)

	_, err = s.service.Get(context.Background(), sessionID)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))
}

func (s *ServiceSuite) TestSubmitDocument() {
	sessionID := s.extracted(models.VerificationAbove18)

	stored := s.stored(sessionID)
	s.Equal(models.StateDocumentExtracted, stored.State)
	s.Equal("ABCDE1234F", stored.Extraction.Value(docmodels.FieldDocumentNumber))
	s.NotNil(stored.DocumentPhoto())
}

func (s *ServiceSuite) TestSubmitDocumentFailureKeepsInitiated() {
	sessionID := s.started(models.VerificationAbove18)
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeInvalidInput, "document image could not be decoded"))

	_, err := s.service.SubmitDocument(context.Background(), sessionID, docmodels.RawImage{Data: []byte("x")})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Equal(models.StateInitiated, s.stored(sessionID).State)
}

func (s *ServiceSuite) TestSubmitDocumentTwiceIsInvalidState() {
	sessionID := s.extracted(models.VerificationAbove18)

	_, err := s.service.SubmitDocument(context.Background(), sessionID, docmodels.RawImage{Data: []byte("x")})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestRecordFaceMatch() {
	sessionID := s.extracted(models.VerificationAbove18)
	gomock.InOrder(
		s.faces.EXPECT().Compare(gomock.Any(), []byte{0xff, 0xd8, 0xff}, []byte("a")).Return(face.Match{Match: true, Distance: 0.30}, nil),
		s.faces.EXPECT().Compare(gomock.Any(), gomock.Any(), []byte("b")).Return(face.Match{Match: false, Distance: 0.55}, nil),
		s.faces.EXPECT().Compare(gomock.Any(), gomock.Any(), []byte("c")).Return(face.Match{Match: true, Distance: 0.25}, nil),
	)

	session, err := s.service.RecordFaceMatch(context.Background(), sessionID, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	s.Require().NoError(err)
	s.Equal(models.StateFaceVerified, session.State)
	s.Require().NotNil(session.Face)
	s.Equal(3, session.Face.Submitted)
	s.Equal(2, session.Face.Matched)
	s.InDelta(0.25, session.Face.BestDistance, 1e-9)
	s.InDelta(75.0, session.Face.Confidence, 1e-9)
	s.True(session.Face.IsMatch)
}

func (s *ServiceSuite) TestRecordFaceNonMatchIsData() {
	sessionID := s.extracted(models.VerificationAbove18)
	s.faces.EXPECT().Compare(gomock.Any(), gomock.Any(), gomock.Any()).Return(face.Match{Match: false, Distance: 0.7}, nil).Times(2)

	session, err := s.service.RecordFaceMatch(context.Background(), sessionID, [][]byte{[]byte("a"), []byte("b")})
	s.Require().NoError(err)
	s.Equal(models.StateFaceVerified, session.State)
	s.False(session.Face.IsMatch)
}

func (s *ServiceSuite) TestRecordFaceErrorIsRecoverable() {
	sessionID := s.extracted(models.VerificationAbove18)
	s.faces.EXPECT().Compare(gomock.Any(), gomock.Any(), gomock.Any()).Return(face.Match{}, face.ErrNoFaceDetected)

	_, err := s.service.RecordFaceMatch(context.Background(), sessionID, [][]byte{[]byte("a")})
	s.True(dErrors.HasCode(err, dErrors.CodeUnprocessable))
	s.ErrorIs(err, face.ErrNoFaceDetected)
	s.Equal(models.StateDocumentExtracted, s.stored(sessionID).State)
}

func (s *ServiceSuite) TestRecordFaceImageBounds() {
	sessionID := s.extracted(models.VerificationAbove18)

	_, err := s.service.RecordFaceMatch(context.Background(), sessionID, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	six := make([][]byte, MaxFaceImages+1)
	_, err = s.service.RecordFaceMatch(context.Background(), sessionID, six)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestRecordFaceWithoutDocumentPhoto() {
	sessionID := s.started(models.VerificationAbove18)
	result := extraction()
	result.Photo = &docmodels.PhotoRegion{Found: false}
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(result, nil)
	_, err := s.service.SubmitDocument(context.Background(), sessionID, docmodels.RawImage{Data: []byte("img")})
	s.Require().NoError(err)

	_, err = s.service.RecordFaceMatch(context.Background(), sessionID, [][]byte{[]byte("a")})
	s.True(dErrors.HasCode(err, dErrors.CodeUnprocessable))
}

func (s *ServiceSuite) TestRecordFaceUnavailable() {
	sessionID := s.extracted(models.VerificationAbove18)
	s.faces.EXPECT().Compare(gomock.Any(), gomock.Any(), gomock.Any()).Return(face.Match{}, face.ErrUnavailable)

	_, err := s.service.RecordFaceMatch(context.Background(), sessionID, [][]byte{[]byte("a")})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ServiceSuite) TestRecordFaceOutcomeValidation() {
	sessionID := s.extracted(models.VerificationAbove18)
	_, err := s.service.RecordFaceOutcome(context.Background(), sessionID, models.FaceMatch{Submitted: 1, Matched: 2})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestStoreFailureIsInternal() {
	store := mocks.NewMockStore(s.ctrl)
	store.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))
	svc := New(store, s.extractor, s.faces, s.publisher, Config{},
		WithLogger(s.service.logger), WithClock(func() time.Time { return s.now }))

	_, err := svc.Get(context.Background(), id.NewSessionID())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
