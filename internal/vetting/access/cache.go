package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the cached vetting state for one user. The cache stores
// the status, not the decision, so policy changes take effect without
// invalidation.
type Snapshot struct {
	HasApplication bool             `json:"has_application"`
	ApplicationID  id.ApplicationID `json:"application_id,omitempty"`
	Status         models.Status    `json:"status,omitempty"`
}

// StatusCache is a best-effort read-through cache keyed by
// (accessType, userID). Misses and errors both fall back to storage.
type StatusCache interface {
	Get(ctx context.Context, accessType Type, userID id.UserID) (*Snapshot, error)
	Set(ctx context.Context, accessType Type, userID id.UserID, snap Snapshot) error
}

func cacheKey(accessType Type, userID id.UserID) string {
	return fmt.Sprintf("vetting_access_%s_%s", accessType, userID)
}

// RedisCache stores snapshots in redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns nil on a miss.
func (c *RedisCache) Get(ctx context.Context, accessType Type, userID id.UserID) (*Snapshot, error) {
	raw, err := c.client.Get(ctx, cacheKey(accessType, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &snap, nil
}

func (c *RedisCache) Set(ctx context.Context, accessType Type, userID id.UserID, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(accessType, userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// MemoryCache is the dev/test fallback when redis is not configured.
// Last-write-wins under concurrency is acceptable: stale entries only
// widen the staleness window, never corrupt data.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, accessType Type, userID id.UserID) (*Snapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey(accessType, userID)]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	snap := entry.snap
	return &snap, nil
}

func (c *MemoryCache) Set(_ context.Context, accessType Type, userID id.UserID, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(accessType, userID)] = memoryEntry{snap: snap, expiresAt: time.Now().Add(c.ttl)}
	return nil
}
