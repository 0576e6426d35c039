package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyGuard deduplicates outcome deliveries with SET NX.
// The TTL bounds memory: a redelivery later than the window is treated
// as new, which is safe because by then the lead has left calling and
// the transition check rejects it anyway.
type RedisIdempotencyGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

const idempotencyKeyPrefix = "dialer:outcome:"

func NewRedisIdempotencyGuard(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisIdempotencyGuard) Register(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, idempotencyKeyPrefix+key, 1, g.ttl).Result()
}

func (g *RedisIdempotencyGuard) Unregister(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, idempotencyKeyPrefix+key).Err()
}

// MemoryIdempotencyGuard is a process-local guard for tests and
// single-instance deployments without Redis.
type MemoryIdempotencyGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryIdempotencyGuard() *MemoryIdempotencyGuard {
	return &MemoryIdempotencyGuard{seen: map[string]struct{}{}}
}

func (g *MemoryIdempotencyGuard) Register(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}

func (g *MemoryIdempotencyGuard) Unregister(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
	return nil
}
