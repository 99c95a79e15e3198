package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEntryNotFound is returned by MarkProcessed for unknown or already processed ids.
var ErrEntryNotFound = errors.New("outbox entry not found or already processed")

// Store defines the outbox persistence operations.
// Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, entry *Entry) error

	// FetchUnprocessed claims up to limit pending entries, oldest first.
	// A claimed entry is not returned to another caller until its lease
	// lapses, so concurrent workers do not double-deliver within a lease.
	FetchUnprocessed(ctx context.Context, limit int) ([]*Entry, error)

	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error

	CountPending(ctx context.Context) (int64, error)

	// DeleteProcessedBefore removes processed entries older than before.
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
