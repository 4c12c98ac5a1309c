// Copyright (c) 2026 Blood Bridge. All rights reserved.

package role

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/cases"

	"github.com/bloodbridge/portal/internal/platform/constants"
)

// Cache stores resolved roles, including [None], by cache key.
type Cache interface {
	// Get returns the cached role and whether the key was present.
	Get(ctx context.Context, key string) (Role, bool, error)

	// Set stores a role. A zero ttl uses the cache default.
	Set(ctx context.Context, key string, value Role, ttl time.Duration) error

	// Delete removes a key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Ping reports backend health.
	Ping(ctx context.Context) error
}

var emailFolder = cases.Fold()

// Key returns the cache key for an email: "userRole:" followed by the
// case-folded, trimmed address.
func Key(email string) string {
	return constants.CacheKeyPrefixRole + emailFolder.String(strings.TrimSpace(email))
}

// # Memory Cache

// MemoryCache is an in-process [Cache] for single-instance deployments and tests.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a cache whose entries expire after defaultTTL.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(defaultTTL, time.Minute)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Role, bool, error) {
	value, ok := c.items.Get(key)
	if !ok {
		return None, false, nil
	}
	r, _ := value.(Role)
	return r, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value Role, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, value, ttl)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

func (c *MemoryCache) Ping(context.Context) error { return nil }

// # Redis Cache

// RedisCache shares role entries between portal instances.
type RedisCache struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
}

// NewRedisCache wraps an existing client. Keys are namespaced with "portal:".
func NewRedisCache(client redis.UniversalClient, defaultTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: constants.RedisPrefixRole, defaultTTL: defaultTTL}
}

func (c *RedisCache) key(k string) string { return c.prefix + k }

func (c *RedisCache) Get(ctx context.Context, key string) (Role, bool, error) {
	value, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return None, false, nil
	}
	if err != nil {
		return None, false, fmt.Errorf("role cache: get: %w", err)
	}
	return Role(value), true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value Role, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.key(key), string(value), ttl).Err(); err != nil {
		return fmt.Errorf("role cache: set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("role cache: delete: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
