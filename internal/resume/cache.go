package resume

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces résumé text entries in Redis.
const KeyPrefix = "resume:text:"

// Cache stores extracted résumé text by URL. Implementations must treat
// every failure as a miss: a broken cache may slow requests down but must
// never fail them.
type Cache interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, text string)
}

// RedisCache is a Cache backed by Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps client. The client's lifecycle stays with the caller.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Key returns the Redis key for url. URLs are hashed so arbitrary
// characters and lengths never leak into key names.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Get(ctx context.Context, url string) (string, bool) {
	text, err := c.client.Get(ctx, Key(url)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		slog.Warn("resume cache get failed", slog.String("error", err.Error()))
		return "", false
	}
	return text, true
}

func (c *RedisCache) Set(ctx context.Context, url, text string) {
	if err := c.client.Set(ctx, Key(url), text, c.ttl).Err(); err != nil {
		slog.Warn("resume cache set failed", slog.String("error", err.Error()))
	}
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
