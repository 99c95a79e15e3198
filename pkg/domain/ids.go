// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "suiverify/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a SessionID where a RequestID is expected.
type (
	SessionID uuid.UUID
	RequestID uuid.UUID
)

// NewSessionID generates a random session identifier.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewRequestID generates a random verification request identifier.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, consumed messages).

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseUUID(s, "request ID")
	return RequestID(id), err
}

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string { return uuid.UUID(id).String() }

func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic. Nil UUIDs are rejected since
// they can never name a live session.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
