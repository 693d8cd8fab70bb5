package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long an assembled transcript is reused.
const DefaultCacheTTL = 15 * time.Minute

// RedisCache stores transcripts as JSON under a key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL and checks the connection.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, prefix: "transcript:", ttl: ttl}
}

func (c *RedisCache) key(id string) string { return c.prefix + id }

// GetTranscript implements Cache.
func (c *RedisCache) GetTranscript(ctx context.Context, id string) (*Transcript, bool, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get transcript %s: %w", id, err)
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false, fmt.Errorf("decode transcript %s: %w", id, err)
	}
	return &t, true, nil
}

// SetTranscript implements Cache.
func (c *RedisCache) SetTranscript(ctx context.Context, t *Transcript) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode transcript %s: %w", t.Archive.ID, err)
	}
	if err := c.client.Set(ctx, c.key(t.Archive.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set transcript %s: %w", t.Archive.ID, err)
	}
	return nil
}

// Invalidate implements Cache.
func (c *RedisCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("invalidate transcript %s: %w", id, err)
	}
	return nil
}

// Ping checks that redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

// Close closes the redis connection.
func (c *RedisCache) Close() error { return c.client.Close() }

// Client exposes the underlying connection for other Redis consumers.
func (c *RedisCache) Client() *redis.Client { return c.client }
