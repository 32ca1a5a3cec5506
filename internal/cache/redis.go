package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores entries in a Redis server under a key prefix, using Redis
// expiry for the TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedis connects to addr and verifies the connection with PING.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, prefix: "physiology-rag:emb:", ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		r.misses.Add(1)
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	r.hits.Add(1)
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Stats reports hits and misses seen by this process. Entries is not tracked.
func (r *Redis) Stats() Stats {
	return newStats(0, r.hits.Load(), r.misses.Load())
}

func (r *Redis) Close() error {
	return r.client.Close()
}
