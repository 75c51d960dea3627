package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a live Redis; set REDIS_ADDR to run.
func TestRedisLease(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	prefix := "test-" + uuid.NewString()
	first := NewRedisLease(client, prefix)
	second := NewRedisLease(client, prefix)

	ok, err := first.Acquire(ctx, sweepLeaseKey, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx, sweepLeaseKey, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held by the first replica")

	// only the holder can release
	require.NoError(t, second.Release(ctx, sweepLeaseKey))
	ok, err = second.Acquire(ctx, sweepLeaseKey, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx, sweepLeaseKey))
	ok, err = second.Acquire(ctx, sweepLeaseKey, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Release(ctx, sweepLeaseKey))
}
