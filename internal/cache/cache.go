// Package cache holds the Redis-backed response cache for public storefront
// reads and the invalidation hook that mutations call.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khanofemperia/gethsemane-sub001/internal/config"
)

const keyPrefix = "page:"

// Path prefixes invalidated by mutations
const (
	PathCart        = "/api/cart"
	PathHome        = "/api/home"
	PathProducts    = "/api/products"
	PathUpsells     = "/api/upsells"
	PathCollections = "/api/collections"
	PathCategories  = "/api/categories"
	PathAdmin       = "/api/admin"
)

// Invalidator drops cached pages under the given path prefixes
type Invalidator interface {
	Invalidate(ctx context.Context, prefixes ...string) error
}

// NewRedisClient builds a client from the redis config
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// PageCache stores response bodies keyed by request path
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	return &PageCache{client: client, ttl: ttl}
}

// Get returns the cached body for path. ok is false on a miss.
func (c *PageCache) Get(ctx context.Context, path string) (body []byte, ok bool, err error) {
	body, err = c.client.Get(ctx, keyPrefix+path).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached page: %w", err)
	}
	return body, true, nil
}

func (c *PageCache) Set(ctx context.Context, path string, body []byte) error {
	if err := c.client.Set(ctx, keyPrefix+path, body, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache page: %w", err)
	}
	return nil
}

// Invalidate deletes every cached page whose path starts with one of prefixes
func (c *PageCache) Invalidate(ctx context.Context, prefixes ...string) error {
	for _, prefix := range prefixes {
		pattern := keyPrefix + escapeGlob(prefix) + "*"

		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan cached pages: %w", err)
		}

		if len(keys) == 0 {
			continue
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate cached pages: %w", err)
		}
	}
	return nil
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

// Noop is used when no Redis is configured
type Noop struct{}

func (Noop) Invalidate(context.Context, ...string) error { return nil }
