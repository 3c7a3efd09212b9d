package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Coordinates is a geocoded location. NotFound marks a cached negative
// result so unknown postal codes do not hit the provider repeatedly.
type Coordinates struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	NotFound bool    `json:"not_found,omitempty"`
}

// Cache stores geocode results by key
type Cache interface {
	Get(ctx context.Context, key string) (Coordinates, bool, error)
	Set(ctx context.Context, key string, coords Coordinates, ttl time.Duration) error
}

func cacheKey(country, postalCode string) string {
	return fmt.Sprintf("geo:postal:%s:%s", country, postalCode)
}

// RedisCache keeps geocode results in Redis as JSON strings
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Coordinates, bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Coordinates{}, false, nil
		}
		return Coordinates{}, false, fmt.Errorf("failed to read geocode cache: %w", err)
	}

	var coords Coordinates
	if err := json.Unmarshal([]byte(raw), &coords); err != nil {
		return Coordinates{}, false, fmt.Errorf("failed to decode geocode cache entry: %w", err)
	}
	return coords, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, coords Coordinates, ttl time.Duration) error {
	raw, err := json.Marshal(coords)
	if err != nil {
		return fmt.Errorf("failed to encode geocode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write geocode cache: %w", err)
	}
	return nil
}

type memoryEntry struct {
	coords    Coordinates
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when Redis is unavailable.
// Expired entries are dropped lazily on read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Coordinates, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Coordinates{}, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return Coordinates{}, false, nil
	}
	return entry.coords, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, coords Coordinates, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{coords: coords, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
