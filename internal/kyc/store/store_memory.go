package store

import (
	"context"
	"fmt"
	"sync"

	"suiverify/internal/kyc/models"
	"suiverify/internal/sentinel"
	id "suiverify/pkg/domain"
)

var (
	ErrConflict      = fmt.Errorf("concurrent session update: %w", sentinel.ErrConflict)
	ErrAlreadyExists = fmt.Errorf("session already exists: %w", sentinel.ErrConflict)
)

// InMemoryStore keeps encoded sessions in a map for tests and single-node dev.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID][]byte
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.SessionID][]byte)}
}

func (s *InMemoryStore) Create(_ context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	data, err := encode(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return ErrAlreadyExists
	}
	s.sessions[session.ID] = data
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	data, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return decode(data)
}

// Execute validates and mutates under the write lock.
func (s *InMemoryStore) Execute(_ context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	session, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := validate(session); err != nil {
		return nil, err
	}
	mutate(session)

	updated, err := encode(session)
	if err != nil {
		return nil, err
	}
	s.sessions[sessionID] = updated
	return session, nil
}
