package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"suiverify/pkg/platform/outbox"
)

// DefaultLease is how long a fetched entry stays hidden from other workers.
const DefaultLease = 30 * time.Second

const maxBatch = 1000

const (
	insertEntry = `
INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	// claimEntries leases pending rows; SKIP LOCKED keeps concurrent workers
	// from blocking on each other's claims.
	claimEntries = `
UPDATE outbox SET claimed_until = $2
WHERE id IN (
	SELECT id FROM outbox
	WHERE processed_at IS NULL AND (claimed_until IS NULL OR claimed_until < $3)
	ORDER BY created_at ASC
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
RETURNING id, aggregate_type, aggregate_id, event_type, payload, created_at`

	markProcessed = `
UPDATE outbox SET processed_at = $2, claimed_until = NULL
WHERE id = $1 AND processed_at IS NULL`

	countPending = `SELECT COUNT(*) FROM outbox WHERE processed_at IS NULL`

	deleteProcessedBefore = `DELETE FROM outbox WHERE processed_at IS NOT NULL AND processed_at < $1`
)

// Store implements outbox.Store on PostgreSQL.
type Store struct {
	db    *sql.DB
	lease time.Duration
	now   func() time.Time
}

// New creates a new PostgreSQL outbox store.
func New(db *sql.DB) *Store {
	return &Store{db: db, lease: DefaultLease, now: time.Now}
}

// Append adds a new entry to the outbox table.
func (s *Store) Append(ctx context.Context, entry *outbox.Entry) error {
	return s.append(ctx, s.db, entry)
}

// AppendTx adds an entry within the caller's transaction.
func (s *Store) AppendTx(ctx context.Context, tx *sql.Tx, entry *outbox.Entry) error {
	return s.append(ctx, tx, entry)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) append(ctx context.Context, db execer, entry *outbox.Entry) error {
	_, err := db.ExecContext(ctx, insertEntry,
		entry.ID, entry.AggregateType, entry.AggregateID, entry.EventType, entry.Payload, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchUnprocessed leases up to limit pending entries, oldest first.
func (s *Store) FetchUnprocessed(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	if limit > maxBatch {
		limit = maxBatch
	}

	now := s.now()
	rows, err := s.db.QueryContext(ctx, claimEntries, limit, now.Add(s.lease), now)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed entries: %w", err)
	}
	defer rows.Close()

	var entries []*outbox.Entry
	for rows.Next() {
		var e outbox.Entry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}

	// RETURNING does not preserve the subquery order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// MarkProcessed marks an entry as delivered.
func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, markProcessed, id, processedAt)
	if err != nil {
		return fmt.Errorf("mark outbox entry processed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", outbox.ErrEntryNotFound, id)
	}
	return nil
}

// CountPending returns the number of unprocessed entries.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, countPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return count, nil
}

// DeleteProcessedBefore removes old processed entries.
func (s *Store) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, deleteProcessedBefore, before)
	if err != nil {
		return 0, fmt.Errorf("delete processed entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

var _ outbox.Store = (*Store)(nil)
