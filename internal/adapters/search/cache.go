package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"bizplanner/internal/adapters/redis"
	"bizplanner/pkg/errors"
)

// Cache stores search hits by key. Get returns ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]Hit, error)
	Set(ctx context.Context, key string, hits []Hit, ttl time.Duration) error
}

// CacheKey builds search:<provider>:<sha256(normalized query)>.
func CacheKey(provider Provider, query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(normalized))
	return "search:" + string(provider) + ":" + hex.EncodeToString(sum[:])
}

type memoryEntry struct {
	hits    []Hit
	expires time.Time
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]Hit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	if !entry.expires.IsZero() && !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return nil, errors.ErrNotFound
	}
	return append([]Hit(nil), entry.hits...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, hits []Hit, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryEntry{hits: append([]Hit(nil), hits...)}
	if ttl > 0 {
		entry.expires = c.now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

// RedisCache keeps hits as JSON in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps a connected Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]Hit, error) {
	var hits []Hit
	if err := c.client.Get(ctx, key, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, hits []Hit, ttl time.Duration) error {
	return c.client.Set(ctx, key, hits, ttl)
}
