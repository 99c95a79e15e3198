package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const guardKeyPrefix = "kyc_publish:"

// Guard records that a session's request was handed off. Claim returns false
// when the session was already claimed and the claim has not lapsed.
type Guard interface {
	Claim(ctx context.Context, sessionID string) (bool, error)
	Release(ctx context.Context, sessionID string) error
}

// RedisGuard claims with SET NX so every instance sees the same claim.
type RedisGuard struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisGuard(client redis.Cmdable, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, sessionID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, guardKeyPrefix+sessionID, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim publish guard: %w", err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, sessionID string) error {
	if err := g.client.Del(ctx, guardKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("release publish guard: %w", err)
	}
	return nil
}

// MemoryGuard is the single-process Guard.
type MemoryGuard struct {
	mu     sync.Mutex
	claims map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{claims: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (g *MemoryGuard) Claim(_ context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if expiry, ok := g.claims[sessionID]; ok && now.Before(expiry) {
		return false, nil
	}
	g.claims[sessionID] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, sessionID)
	return nil
}
