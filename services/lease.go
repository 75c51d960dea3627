package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease is a best-effort distributed mutex.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLease stores the holder token under key with SET NX PX.
type RedisLease struct {
	client *redis.Client
	prefix string
	token  string
}

func NewRedisLease(client *redis.Client, prefix string) *RedisLease {
	return &RedisLease{client: client, prefix: prefix, token: uuid.NewString()}
}

func (l *RedisLease) key(k string) string {
	if l.prefix == "" {
		return k
	}
	return l.prefix + ":" + k
}

func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.key(key), l.token, ttl).Result()
}

// Release only deletes the key while this process still holds it.
func (l *RedisLease) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, l.client, []string{l.key(key)}, l.token).Err()
}
