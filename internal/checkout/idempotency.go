package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "checkout:"

// IdempotencyGuard lets one request claim a client-supplied key. Claim
// reports false when the key is already taken.
type IdempotencyGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

// MemoryGuard is the single-process guard used without Redis.
type MemoryGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{ttl: ttl, keys: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) Claim(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, expires := range g.keys {
		if !now.Before(expires) {
			delete(g.keys, k)
		}
	}
	if _, taken := g.keys[key]; taken {
		return false, nil
	}
	g.keys[key] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}
