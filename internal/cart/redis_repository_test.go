package cart

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisRepository(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	repo := NewRedisRepository(client, time.Minute)
	id := "test-cart-" + time.Now().Format("150405.000000")
	defer client.Del(ctx, cartKeyPrefix+id)

	c := New(id, defaultThreshold(), repo)
	require.NoError(t, c.AddItem(ctx, product(1, "Pho", 65000, 50), 3))

	snap, err := repo.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []SnapshotItem{{ProductID: 1, Quantity: 3}}, snap.Items)

	ttl, err := client.TTL(ctx, cartKeyPrefix+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Clear(ctx))
	snap, err = repo.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, snap.Items)
}
