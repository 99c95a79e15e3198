package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"suiverify/internal/evidence/publisher"
	"suiverify/internal/kyc/models"
	outboxmemory "suiverify/pkg/platform/outbox/store/memory"
	"suiverify/pkg/testutil"
)

func (s *ServiceSuite) TestConcurrentConfirmAndPublishHandsOffOnce() {
	const callers = 30
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	outbox := outboxmemory.New()
	svc := New(s.store, s.extractor, s.faces,
		publisher.New(outbox, publisher.NewMemoryGuard(time.Hour), publisher.WithLogger(logger)),
		Config{SessionTTL: 5 * time.Minute, PendingTTL: 24 * time.Hour, MaxCorrectionRounds: 3},
		WithLogger(logger),
		WithClock(func() time.Time { return s.now }),
	)
	sessionID := s.faceVerified(models.VerificationAbove18)

	hashes := make([]string, callers)
	repeats := make([]bool, callers)
	result := testutil.RunConcurrent(callers, func(idx int) error {
		res, err := svc.ConfirmAndPublish(context.Background(), sessionID)
		if err != nil {
			return err
		}
		hashes[idx] = res.Request.EvidenceHash
		repeats[idx] = res.AlreadyPublished
		return nil
	})

	s.Equal(int32(callers), result.Successes)
	s.Equal(int32(callers), result.Total())

	stored := s.stored(sessionID)
	s.Equal(models.StatePendingExternalVerification, stored.State)
	s.Require().NotNil(stored.Request)
	firsts := 0
	for i := range callers {
		s.Equal(stored.Request.EvidenceHash, hashes[i])
		if !repeats[i] {
			firsts++
		}
	}
	s.Equal(1, firsts)

	pending, err := outbox.FetchUnprocessed(context.Background(), 100)
	s.Require().NoError(err)
	s.Len(pending, 1)
	s.Equal(sessionID.String(), pending[0].AggregateID)
}

func (s *ServiceSuite) TestConfirmRacingCorrectionHasOneWinner() {
	const callers = 20
	sessionID := s.faceVerified(models.VerificationAbove18)

	result := testutil.RunConcurrent(callers, func(idx int) error {
		if idx%2 == 0 {
			_, err := s.service.Confirm(context.Background(), sessionID)
			return err
		}
		_, err := s.service.RequestCorrection(context.Background(), sessionID)
		return err
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(callers-1), result.InvalidStates)

	stored := s.stored(sessionID)
	switch stored.State {
	case models.StateConfirmed:
		s.NotNil(stored.Request)
		s.Zero(stored.CorrectionRound)
	case models.StateAwaitingCorrection:
		s.Nil(stored.Request)
		s.Equal(1, stored.CorrectionRound)
	default:
		s.Failf("unexpected state", "%s", stored.State)
	}
}
