package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a message waiting in the outbox for delivery to a sink.
type Entry struct {
	ID            uuid.UUID
	AggregateType string // e.g. "kyc_session"
	AggregateID   string // partition key at the sink
	EventType     string // e.g. "verification_requested"
	Payload       []byte // JSON
	CreatedAt     time.Time
	ProcessedAt   *time.Time // nil while pending
}

// IsPending reports whether the entry still awaits delivery.
func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

// NewEntry creates an entry with a generated id.
func NewEntry(aggregateType, aggregateID, eventType string, payload []byte, now time.Time) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
	}
}
