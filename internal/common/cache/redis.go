// Package cache stores generated query responses in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"finquery-workers/internal/models"
)

const (
	DefaultPrefix = "finquery:response:"
	DefaultTTL    = 5 * time.Minute
)

// ResponseCache keeps one JSON-encoded QueryResponse per key with a fixed TTL.
type ResponseCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewResponseCache(client redis.Cmdable, prefix string, ttl time.Duration) *ResponseCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *ResponseCache) key(k string) string {
	return c.prefix + k
}

// Get reports a miss, not an error, for absent keys.
func (c *ResponseCache) Get(ctx context.Context, key string) (models.QueryResponse, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return models.QueryResponse{}, false, nil
	}
	if err != nil {
		return models.QueryResponse{}, false, fmt.Errorf("redis get: %w", err)
	}

	var resp models.QueryResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return models.QueryResponse{}, false, fmt.Errorf("decode cached response: %w", err)
	}
	if resp.ReferencedArtifactIDs == nil {
		resp.ReferencedArtifactIDs = []string{}
	}
	return resp, true, nil
}

func (c *ResponseCache) Set(ctx context.Context, key string, resp models.QueryResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
