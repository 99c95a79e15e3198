package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"suiverify/internal/kyc/models"
	"suiverify/internal/sentinel"
	id "suiverify/pkg/domain"
)

const (
	sessionKeyPrefix = "kyc_session:"

	// expiryGrace keeps expired sessions readable so late reads report EXPIRED
	// instead of not found.
	expiryGrace = time.Hour
)

// RedisStore persists sessions in Redis so several instances share state.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func (s *RedisStore) ttl(session *models.Session) time.Duration {
	ttl := session.ExpiresAt.Sub(s.now()) + expiryGrace
	if ttl < expiryGrace {
		return expiryGrace
	}
	return ttl
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	data, err := encode(session)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), data, s.ttl(session)).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return decode(data)
}

// Execute validates and mutates a session under optimistic lock. A write that
// loses the WATCH race returns ErrConflict.
func (s *RedisStore) Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	key := sessionKey(sessionID)
	var result *models.Session

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get session for execute: %w", err)
		}
		session, err := decode(data)
		if err != nil {
			return err
		}
		if err := validate(session); err != nil {
			return err
		}
		mutate(session)

		updated, err := encode(session)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.ttl(session))
			return nil
		})
		if err != nil {
			return err
		}
		result = session
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
