package scheduler

import (
	"context"
	"time"

	"dialer-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisSlotGuard enforces the per-workspace concurrency ceiling with an
// atomic Redis counter (Lua INCR bounded by the limit). Slots carry a
// TTL so a crashed process cannot leak capacity forever; the TTL should
// comfortably exceed the longest plausible call.
type RedisSlotGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

const slotKeyPrefix = "dialer:slots:"

func NewRedisSlotGuard(rdb *redis.Client, ttl time.Duration) *RedisSlotGuard {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisSlotGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisSlotGuard) Acquire(ctx context.Context, workspaceID string, limit int) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, g.rdb, slotKeyPrefix+workspaceID, limit, g.ttl)
}

func (g *RedisSlotGuard) Release(ctx context.Context, workspaceID string) error {
	return utils.ReleaseConcurrencyCap(ctx, g.rdb, slotKeyPrefix+workspaceID)
}
