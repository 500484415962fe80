package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "analytics:overview:v1"

// SnapshotCache keeps the latest Overview in Redis so the dashboard read
// path can skip recomputation. The worker invalidates and rebuilds it on
// every marking event; the API falls through to a live computation on miss.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a cache. A nil client disables caching entirely.
func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached snapshot, or false on miss or any cache error.
func (c *SnapshotCache) Get(ctx context.Context) (Overview, bool) {
	if c == nil || c.rdb == nil {
		return Overview{}, false
	}
	raw, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return Overview{}, false
	}
	var ov Overview
	if err := json.Unmarshal(raw, &ov); err != nil {
		return Overview{}, false
	}
	return ov, true
}

// Put stores a freshly computed snapshot. Best-effort; errors are returned
// for logging but never block the read path.
func (c *SnapshotCache) Put(ctx context.Context, ov Overview) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(ov)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, snapshotKey, raw, c.ttl).Err()
}

// Invalidate drops the cached snapshot. Called on every new marking so a
// stale snapshot never outlives a write by more than one refresh.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, snapshotKey).Err()
}
