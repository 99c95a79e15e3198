package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docmodels "suiverify/internal/document/models"
	"suiverify/internal/sentinel"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateInitiated, StateDocumentExtracted},
		{StateDocumentExtracted, StateFaceVerified},
		{StateFaceVerified, StateAwaitingCorrection},
		{StateFaceVerified, StateConfirmed},
		{StateAwaitingCorrection, StateCorrected},
		{StateCorrected, StateAwaitingCorrection},
		{StateCorrected, StateConfirmed},
		{StateConfirmed, StatePendingExternalVerification},
		{StatePendingExternalVerification, StateVerified},
		{StatePendingExternalVerification, StateRejected},
		{StateInitiated, StateExpired},
		{StatePendingExternalVerification, StateExpired},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to State }{
		{StateInitiated, StateFaceVerified},
		{StateDocumentExtracted, StateConfirmed},
		{StateAwaitingCorrection, StateConfirmed},
		{StateConfirmed, StateVerified},
		{StateVerified, StateRejected},
		{StateVerified, StateExpired},
		{StateExpired, StateExpired},
		{State("BOGUS"), StateExpired},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("0xabc", VerificationAbove18, now, 5*time.Minute)

	assert.Equal(t, StateInitiated, s.State)
	assert.False(t, s.IsExpired(now.Add(4*time.Minute)))
	assert.True(t, s.IsExpired(now.Add(5*time.Minute)))

	s.State = StateVerified
	assert.False(t, s.IsExpired(now.Add(time.Hour)), "terminal sessions do not expire")
}

func TestMoveTo(t *testing.T) {
	now := time.Now()
	s := NewSession("0xabc", VerificationCitizenship, now, time.Minute)

	err := s.MoveTo(StateConfirmed, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.True(t, errors.Is(err, sentinel.ErrInvalidState))
	assert.Equal(t, StateInitiated, s.State)

	later := now.Add(time.Second)
	require.NoError(t, s.MoveTo(StateDocumentExtracted, later))
	assert.Equal(t, StateDocumentExtracted, s.State)
	assert.Equal(t, later, s.UpdatedAt)
}

func TestResolvedFields(t *testing.T) {
	s := &Session{
		Extraction: &docmodels.Result{Fields: map[docmodels.FieldName]docmodels.ExtractedField{
			docmodels.FieldDocumentNumber: {Value: "ABCDE1234F", Valid: true},
			docmodels.FieldHolderName:     {Value: "JOHN D0E", Valid: true},
			docmodels.FieldDateOfBirth:    {Value: "", Valid: false},
		}},
		Corrections: []Correction{
			{Round: 1, Values: map[docmodels.FieldName]string{docmodels.FieldHolderName: "JOHN DOO"}},
			{Round: 2, Values: map[docmodels.FieldName]string{docmodels.FieldHolderName: "JOHN DOE", docmodels.FieldDateOfBirth: "15/08/1990"}},
		},
	}

	got := s.ResolvedFields()
	assert.Equal(t, map[docmodels.FieldName]string{
		docmodels.FieldDocumentNumber: "ABCDE1234F",
		docmodels.FieldHolderName:     "JOHN DOE",
		docmodels.FieldDateOfBirth:    "15/08/1990",
	}, got)
	assert.Equal(t, "JOHN D0E", s.Extraction.Fields[docmodels.FieldHolderName].Value, "originals are kept")
}

func TestVerificationType(t *testing.T) {
	assert.Equal(t, 0, VerificationAbove18.DIDID())
	assert.Equal(t, 1, VerificationCitizenship.DIDID())
	assert.True(t, VerificationAbove18.IsValid())
	assert.False(t, VerificationType("over21").IsValid())
}
