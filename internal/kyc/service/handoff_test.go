package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/evidence/canonical"
	"suiverify/internal/evidence/publisher"
	"suiverify/internal/kyc/models"
	dErrors "suiverify/pkg/domain-errors"
)

func (s *ServiceSuite) TestCorrectionRound() {
	sessionID := s.faceVerified(models.VerificationAbove18)

	session, err := s.service.RequestCorrection(context.Background(), sessionID)
	s.Require().NoError(err)
	s.Equal(models.StateAwaitingCorrection, session.State)
	s.Equal(1, session.CorrectionRound)

	session, err = s.service.SubmitCorrection(context.Background(), sessionID, map[docmodels.FieldName]string{
		docmodels.FieldHolderName: "  john   doe smith ",
	})
	s.Require().NoError(err)
	s.Equal(models.StateCorrected, session.State)
	s.Require().Len(session.Corrections, 1)
	s.Equal(1, session.Corrections[0].Round)
	s.Equal("JOHN DOE SMITH", session.Corrections[0].Values[docmodels.FieldHolderName])
	s.Equal("JOHN DOE", session.Extraction.Value(docmodels.FieldHolderName), "original kept for audit")
}

func (s *ServiceSuite) TestInvalidCorrectionKeepsAwaitingCorrection() {
	sessionID := s.faceVerified(models.VerificationAbove18)
	_, err := s.service.RequestCorrection(context.Background(), sessionID)
	s.Require().NoError(err)

	cases := []map[docmodels.FieldName]string{
		{docmodels.FieldDocumentNumber: "ABCD1234F"},
		{docmodels.FieldDateOfBirth: "31/02/1990"},
		{docmodels.FieldHolderName: "JOHN DOE", docmodels.FieldDateOfBirth: "1990"},
		{"phone_number": "9999999999"},
		{},
	}
	for _, values := range cases {
		_, err := s.service.SubmitCorrection(context.Background(), sessionID, values)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), "%v", values)

		stored := s.stored(sessionID)
		s.Equal(models.StateAwaitingCorrection, stored.State)
		s.Empty(stored.Corrections)
	}
}

func (s *ServiceSuite) TestSubmitCorrectionOutsideRoundIsInvalidState() {
	sessionID := s.faceVerified(models.VerificationAbove18)
	_, err := s.service.SubmitCorrection(context.Background(), sessionID, map[docmodels.FieldName]string{
		docmodels.FieldHolderName: "JOHN DOE",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestCorrectionLimit() {
	sessionID := s.faceVerified(models.VerificationAbove18)
	for range 3 {
		_, err := s.service.RequestCorrection(context.Background(), sessionID)
		s.Require().NoError(err)
		_, err = s.service.SubmitCorrection(context.Background(), sessionID, map[docmodels.FieldName]string{
			docmodels.FieldDateOfBirth: "15-08-1990",
		})
		s.Require().NoError(err)
	}

	_, err := s.service.RequestCorrection(context.Background(), sessionID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	s.ErrorIs(err, models.ErrCorrectionLimitReached)
	s.Equal(models.StateCorrected, s.stored(sessionID).State)
}

func (s *ServiceSuite) TestConfirmUsesCorrectedFields() {
	sessionID := s.faceVerified(models.VerificationAbove18)
	_, err := s.service.RequestCorrection(context.Background(), sessionID)
	s.Require().NoError(err)
	_, err = s.service.SubmitCorrection(context.Background(), sessionID, map[docmodels.FieldName]string{
		docmodels.FieldDocumentNumber: "abcde 1234 g",
	})
	s.Require().NoError(err)

	req, err := s.service.Confirm(context.Background(), sessionID)
	s.Require().NoError(err)
	s.Equal("ABCDE1234G", req.Fields[docmodels.FieldDocumentNumber])
	s.Equal("JOHN DOE", req.Fields[docmodels.FieldHolderName])
	s.Equal(sessionID.String(), req.SessionID)
	s.Equal(0, req.DIDID)
	s.Equal(canonical.EvidenceHash(req), req.EvidenceHash)
	s.NotEmpty(req.RequestID)
	s.NotEmpty(req.Nonce)

	stored := s.stored(sessionID)
	s.Equal(models.StateConfirmed, stored.State)
	s.Equal(req.EvidenceHash, stored.Request.EvidenceHash)
}

func (s *ServiceSuite) TestConfirmRequiresDateOfBirthForAbove18() {
	sessionID := s.started(models.VerificationAbove18)
	result := extraction()
	delete(result.Fields, docmodels.FieldDateOfBirth)
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(result, nil)
	_, err := s.service.SubmitDocument(context.Background(), sessionID, docmodels.RawImage{Data: []byte("img")})
	s.Require().NoError(err)
	_, err = s.service.RecordFaceOutcome(context.Background(), sessionID, models.FaceMatch{Submitted: 1, Matched: 1, IsMatch: true})
	s.Require().NoError(err)

	_, err = s.service.Confirm(context.Background(), sessionID)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(models.StateFaceVerified, s.stored(sessionID).State)
}

func (s *ServiceSuite) TestConfirmRejectsMinorForAbove18() {
	sessionID := s.faceVerified(models.VerificationAbove18)
	_, err := s.service.RequestCorrection(context.Background(), sessionID)
	s.Require().NoError(err)
	_, err = s.service.SubmitCorrection(context.Background(), sessionID, map[docmodels.FieldName]string{
		docmodels.FieldDateOfBirth: "15/10/2010",
	})
	s.Require().NoError(err)

	_, err = s.service.Confirm(context.Background(), sessionID)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestConfirmCitizenshipNeedsOnlyDocumentNumber() {
	sessionID := s.faceVerified(models.VerificationCitizenship)
	req, err := s.service.Confirm(context.Background(), sessionID)
	s.Require().NoError(err)
	s.Equal(1, req.DIDID)
}

func (s *ServiceSuite) TestConfirmFromWrongState() {
	sessionID := s.extracted(models.VerificationAbove18)
	_, err := s.service.Confirm(context.Background(), sessionID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestExpiredConfirmFailsAndNothingIsPublished() {
	sessionID := s.faceVerified(models.VerificationAbove18)
	s.advance(5 * time.Minute)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.Confirm(context.Background(), sessionID)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))

	_, err = s.service.Publish(context.Background(), sessionID)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))

	stored := s.stored(sessionID)
	s.Equal(models.StateExpired, stored.State)
	s.Nil(stored.Request)
}

func (s *ServiceSuite) TestConfirmExtendsToPendingTTL() {
	sessionID := s.faceVerified(models.VerificationAbove18)
	s.advance(4*time.Minute + 50*time.Second)
	_, err := s.service.Confirm(context.Background(), sessionID)
	s.Require().NoError(err)
	s.Equal(s.now.Add(24*time.Hour), s.stored(sessionID).ExpiresAt)

	s.advance(time.Minute)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	result, err := s.service.Publish(context.Background(), sessionID)
	s.Require().NoError(err)
	s.Equal(models.StatePendingExternalVerification, result.Session.State)
}

func (s *ServiceSuite) TestExpiredAfterConfirmIsNotPublished() {
	sessionID, _ := s.confirmed(models.VerificationAbove18)
	s.advance(24 * time.Hour)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.Publish(context.Background(), sessionID)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	s.Equal(models.StateExpired, s.stored(sessionID).State)
}

func (s *ServiceSuite) TestPublish() {
	sessionID, req := s.confirmed(models.VerificationAbove18)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, got *models.VerificationRequest) error {
			s.Equal(req.EvidenceHash, got.EvidenceHash)
			return nil
		})

	result, err := s.service.Publish(context.Background(), sessionID)
	s.Require().NoError(err)
	s.False(result.AlreadyPublished)
	s.Equal(models.StatePendingExternalVerification, result.Session.State)
	s.Equal(s.now.Add(24*time.Hour), result.Session.ExpiresAt)

	again, err := s.service.Publish(context.Background(), sessionID)
	s.Require().NoError(err)
	s.True(again.AlreadyPublished)
	s.Equal(req.EvidenceHash, again.Request.EvidenceHash)
}

func (s *ServiceSuite) TestPublishGuardHitCountsAsPublished() {
	sessionID, _ := s.confirmed(models.VerificationAbove18)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(publisher.ErrDuplicatePublication)

	result, err := s.service.Publish(context.Background(), sessionID)
	s.Require().NoError(err)
	s.True(result.AlreadyPublished)
	s.Equal(models.StatePendingExternalVerification, result.Session.State)
}

func (s *ServiceSuite) TestPublishFailureStaysConfirmed() {
	sessionID, _ := s.confirmed(models.VerificationAbove18)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("outbox down"))

	_, err := s.service.Publish(context.Background(), sessionID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(models.StateConfirmed, s.stored(sessionID).State)
}

func (s *ServiceSuite) TestConfirmAndPublishRetriesAfterFailedPublish() {
	sessionID := s.faceVerified(models.VerificationAbove18)
	gomock.InOrder(
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("outbox down")),
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil),
	)

	_, err := s.service.ConfirmAndPublish(context.Background(), sessionID)
	s.Require().Error(err)
	first := s.stored(sessionID).Request

	result, err := s.service.ConfirmAndPublish(context.Background(), sessionID)
	s.Require().NoError(err)
	s.Equal(first.EvidenceHash, result.Request.EvidenceHash)
	s.Equal(first.RequestID, result.Request.RequestID)
}

func (s *ServiceSuite) published() (*models.VerificationRequest, string) {
	sessionID, req := s.confirmed(models.VerificationAbove18)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	_, err := s.service.Publish(context.Background(), sessionID)
	s.Require().NoError(err)
	return req, sessionID.String()
}

func (s *ServiceSuite) TestApplyResult() {
	req, sessionID := s.published()
	s.advance(time.Hour)

	session, err := s.service.ApplyResult(context.Background(), models.VerificationResult{
		SessionID:    sessionID,
		Success:      true,
		Response:     json.RawMessage(`{"attested":true}`),
		Signature:    "0xsig",
		EvidenceHash: req.EvidenceHash,
	})
	s.Require().NoError(err)
	s.Equal(models.StateVerified, session.State)
	s.Require().NotNil(session.Verifier)
	s.Equal("0xsig", session.Verifier.Signature)
	s.JSONEq(`{"attested":true}`, string(session.Verifier.Response))
}

func (s *ServiceSuite) TestApplyResultRedeliveryIsNoop() {
	_, sessionID := s.published()
	result := models.VerificationResult{SessionID: sessionID, Success: false}

	first, err := s.service.ApplyResult(context.Background(), result)
	s.Require().NoError(err)
	s.Equal(models.StateRejected, first.State)

	s.advance(time.Minute)
	again, err := s.service.ApplyResult(context.Background(), result)
	s.Require().NoError(err)
	s.Equal(models.StateRejected, again.State)
	s.Equal(first.Verifier.ReceivedAt, again.Verifier.ReceivedAt)

	_, err = s.service.ApplyResult(context.Background(), models.VerificationResult{SessionID: sessionID, Success: true})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestApplyResultHashMismatch() {
	_, sessionID := s.published()

	_, err := s.service.ApplyResult(context.Background(), models.VerificationResult{
		SessionID:    sessionID,
		Success:      true,
		EvidenceHash: "deadbeef",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	s.Equal(models.StatePendingExternalVerification, s.stored(mustParse(s, sessionID)).State)
}

func (s *ServiceSuite) TestApplyResultBeforePublish() {
	sessionID, _ := s.confirmed(models.VerificationAbove18)
	_, err := s.service.ApplyResult(context.Background(), models.VerificationResult{SessionID: sessionID.String(), Success: true})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestApplyResultBadSessionID() {
	_, err := s.service.ApplyResult(context.Background(), models.VerificationResult{SessionID: "nope"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
