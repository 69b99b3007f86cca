// Package cache holds the redis-backed cache for signed thumbnail URLs, so
// listing the corpus does not re-sign every thumbnail on every request.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const urlKeyPrefix = "papershelf:thumb-url:"

// URLCache stores signed URLs with a TTL shorter than the signature expiry.
// All operations are best-effort: a cache outage degrades to re-signing, it
// never fails a request.
type URLCache struct {
	client *redis.Client
}

func NewURLCache(client *redis.Client) *URLCache {
	return &URLCache{client: client}
}

func (c *URLCache) GetURL(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, urlKeyPrefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		slog.Debug("url cache get failed", "key", key, "error", err)
		return "", false
	}
	return val, true
}

func (c *URLCache) SetURL(ctx context.Context, key, url string, ttl time.Duration) {
	if err := c.client.Set(ctx, urlKeyPrefix+key, url, ttl).Err(); err != nil {
		slog.Debug("url cache set failed", "key", key, "error", err)
	}
}
