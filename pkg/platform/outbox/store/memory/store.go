// Package memory is an in-process outbox store used when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"suiverify/pkg/platform/outbox"
)

// DefaultLease is how long a fetched entry stays hidden from other fetches.
const DefaultLease = 30 * time.Second

// Store keeps entries in a map guarded by a mutex.
type Store struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*outbox.Entry
	claimed map[uuid.UUID]time.Time
	lease   time.Duration
	now     func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entries: make(map[uuid.UUID]*outbox.Entry),
		claimed: make(map[uuid.UUID]time.Time),
		lease:   DefaultLease,
		now:     time.Now,
	}
}

func (s *Store) Append(_ context.Context, entry *outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *Store) FetchUnprocessed(_ context.Context, limit int) ([]*outbox.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	pending := make([]*outbox.Entry, 0)
	for id, e := range s.entries {
		if !e.IsPending() {
			continue
		}
		if until, ok := s.claimed[id]; ok && now.Before(until) {
			continue
		}
		pending = append(pending, e)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	out := make([]*outbox.Entry, 0, len(pending))
	for _, e := range pending {
		s.claimed[e.ID] = now.Add(s.lease)
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) MarkProcessed(_ context.Context, id uuid.UUID, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || !e.IsPending() {
		return outbox.ErrEntryNotFound
	}
	t := processedAt
	e.ProcessedAt = &t
	delete(s.claimed, id)
	return nil
}

func (s *Store) CountPending(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if e.IsPending() {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.entries {
		if e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

var _ outbox.Store = (*Store)(nil)
