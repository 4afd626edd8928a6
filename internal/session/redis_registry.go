package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry is a Registry backed by Redis, letting several orchestrator
// processes share one active-session set. A key's TTL bounds how long a
// crashed process can hold a slot hostage before it frees up on its own.
type RedisRegistry struct {
	client  *redis.Client
	prefix  string
	entryTTL time.Duration
}

// NewRedisRegistry connects to the given Redis URL (redis://host:port/db).
func NewRedisRegistry(redisURL string, entryTTL time.Duration) (*RedisRegistry, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisRegistry{
		client:   redis.NewClient(opts),
		prefix:   "interviewer:active-session:",
		entryTTL: entryTTL,
	}, nil
}

func (r *RedisRegistry) TryInsert(ctx context.Context, userID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+userID, "1", r.entryTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisRegistry) Remove(ctx context.Context, userID string) error {
	err := r.client.Del(ctx, r.prefix+userID).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Close releases the underlying Redis connection pool.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
