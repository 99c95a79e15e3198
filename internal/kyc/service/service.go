// Package service drives a KYC session from document submission through
// correction and confirmation to the verifier's result.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"suiverify/internal/kyc/models"
	"suiverify/internal/platform/config"
	"suiverify/internal/platform/metrics"
	"suiverify/internal/platform/tracer"
	id "suiverify/pkg/domain"
	dErrors "suiverify/pkg/domain-errors"
	"suiverify/pkg/platform/sync"
	"suiverify/pkg/requestcontext"
)

const MaxFaceImages = 5

// Config bounds the session lifecycle.
type Config struct {
	SessionTTL          time.Duration
	PendingTTL          time.Duration
	MaxCorrectionRounds int
	MinFaceImages       int
	MinFaceMatches      int
}

// ConfigFrom adapts the server config.
func ConfigFrom(c config.KYCConfig) Config {
	return Config{
		SessionTTL:          c.SessionTTL,
		PendingTTL:          c.PendingTTL,
		MaxCorrectionRounds: c.MaxCorrectionRounds,
		MinFaceImages:       c.MinFaceImages,
		MinFaceMatches:      c.MinFaceMatches,
	}
}

func (c *Config) applyDefaults() {
	if c.SessionTTL <= 0 {
		c.SessionTTL = config.DefaultSessionTTL
	}
	if c.PendingTTL <= 0 {
		c.PendingTTL = config.DefaultPendingTTL
	}
	if c.MaxCorrectionRounds <= 0 {
		c.MaxCorrectionRounds = config.DefaultMaxCorrectionRounds
	}
	if c.MinFaceImages <= 0 {
		c.MinFaceImages = 3
	}
	if c.MinFaceMatches <= 0 {
		c.MinFaceMatches = 2
	}
}

// Service implements the session operations. Mutations of one session are
// serialized in process by a sharded mutex and across processes by the
// store's optimistic Execute.
type Service struct {
	store     Store
	extractor Extractor
	faces     FaceComparer
	publisher Publisher
	cfg       Config
	locks     *sync.ShardedMutex
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, extractor Extractor, faces FaceComparer, publisher Publisher, cfg Config, opts ...Option) *Service {
	cfg.applyDefaults()
	s := &Service{
		store:     store,
		extractor: extractor,
		faces:     faces,
		publisher: publisher,
		cfg:       cfg,
		locks:     sync.NewShardedMutex(),
		logger:    slog.Default(),
		tracer:    tracer.NewNoop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRequest opens a session.
type StartRequest struct {
	SubjectID        string
	VerificationType models.VerificationType
}

func (s *Service) Start(ctx context.Context, req StartRequest) (*models.Session, error) {
	if req.SubjectID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "subject identifier is required")
	}
	if !req.VerificationType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "verification_type must be above18 or citizenship")
	}

	session := models.NewSession(req.SubjectID, req.VerificationType, s.now(), s.cfg.SessionTTL)
	if err := s.store.Create(ctx, session); err != nil {
		return nil, s.translate(ctx, "start", err)
	}
	s.metrics.IncrementSessionsStarted()
	s.logger.InfoContext(ctx, "kyc session started",
		"session_id", session.ID.String(),
		"verification_type", string(session.VerificationType),
		"expires_at", session.ExpiresAt,
		"device", requestcontext.Device(ctx),
	)
	return session, nil
}

// Get returns the session. An elapsed session is marked EXPIRED and reported
// as expired.
func (s *Service) Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, s.translate(ctx, "get", err)
	}
	return session, nil
}

// load reads a live session, applying lazy expiry.
func (s *Service) load(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == models.StateExpired {
		return nil, models.ErrSessionExpired
	}
	if session.IsExpired(s.now()) {
		s.expire(ctx, sessionID)
		return nil, models.ErrSessionExpired
	}
	return session, nil
}

// loadIn is load plus a state precondition.
func (s *Service) loadIn(ctx context.Context, sessionID id.SessionID, allowed ...models.State) (*models.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, st := range allowed {
		if session.State == st {
			return session, nil
		}
	}
	return nil, fmt.Errorf("session is %s: %w", session.State, models.ErrInvalidState)
}

// expire persists EXPIRED best-effort.
func (s *Service) expire(ctx context.Context, sessionID id.SessionID) {
	s.locks.Lock(sessionID.String())
	defer s.locks.Unlock(sessionID.String())
	s.markExpired(ctx, sessionID, s.now())
}

// markExpired persists EXPIRED while the caller holds the session lock.
func (s *Service) markExpired(ctx context.Context, sessionID id.SessionID, now time.Time) {
	_, err := s.store.Execute(ctx, sessionID,
		func(cur *models.Session) error {
			if !cur.IsExpired(now) {
				return fmt.Errorf("session is %s: %w", cur.State, models.ErrInvalidState)
			}
			return nil
		},
		func(cur *models.Session) { _ = cur.MoveTo(models.StateExpired, now) },
	)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to persist session expiry", "session_id", sessionID.String(), "error", err)
		return
	}
	s.metrics.IncrementTransition(string(models.StateExpired))
}

// update validates and mutates one session under its lock. Expiry is checked
// first: an elapsed session moves to EXPIRED and the call fails with
// ErrSessionExpired without running validate or mutate.
func (s *Service) update(ctx context.Context, sessionID id.SessionID, validate func(*models.Session, time.Time) error, mutate func(*models.Session, time.Time)) (*models.Session, error) {
	s.locks.Lock(sessionID.String())
	defer s.locks.Unlock(sessionID.String())

	now := s.now()
	var expired bool
	session, err := s.store.Execute(ctx, sessionID,
		func(cur *models.Session) error {
			expired = false
			if cur.State == models.StateExpired {
				return models.ErrSessionExpired
			}
			if cur.IsExpired(now) {
				expired = true
				return nil
			}
			return validate(cur, now)
		},
		func(cur *models.Session) {
			if expired {
				_ = cur.MoveTo(models.StateExpired, now)
				return
			}
			mutate(cur, now)
		},
	)
	if expired {
		if err != nil {
			s.logger.WarnContext(ctx, "failed to persist session expiry", "session_id", sessionID.String(), "error", err)
		} else {
			s.metrics.IncrementTransition(string(models.StateExpired))
		}
		return nil, models.ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementTransition(string(session.State))
	return session, nil
}

// moveTo is the common validate step for a single transition.
func moveTo(to models.State) func(*models.Session, time.Time) error {
	return func(cur *models.Session, _ time.Time) error {
		return cur.CanMoveTo(to)
	}
}
