// Package palette assigns a stable presentation color to an entity id
// (subject, notice) so repeated renders never re-randomize.
package palette

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Default is the fixed palette used for subjects and notices. Reuse across
// unrelated entities is expected; the palette is much smaller than the id
// space.
var Default = []string{
	"#4F46E5", // indigo
	"#0EA5E9", // sky
	"#10B981", // emerald
	"#F59E0B", // amber
	"#EF4444", // red
	"#8B5CF6", // violet
	"#EC4899", // pink
	"#14B8A6", // teal
	"#F97316", // orange
	"#64748B", // slate
}

// Registry hands out colors first-seen round-robin and persists the
// assignment in Redis, so an id keeps its color across restarts within a
// palette version. When Redis is unreachable it degrades to a deterministic
// hash of the id, which is still stable per id, just no longer round-robin.
type Registry struct {
	rdb     *redis.Client
	palette []string
	version string
}

// New creates a registry over the given client. A nil client is allowed and
// forces the hash fallback (useful in tests and dev).
func New(rdb *redis.Client, colors []string) *Registry {
	if len(colors) == 0 {
		colors = Default
	}
	return &Registry{rdb: rdb, palette: colors, version: "v1"}
}

func (r *Registry) assignKey() string  { return "palette:" + r.version + ":assign" }
func (r *Registry) counterKey() string { return "palette:" + r.version + ":next" }

// ColorOf returns the color for id. Idempotent: the same id always maps to
// the same color within a palette version.
func (r *Registry) ColorOf(ctx context.Context, id string) string {
	if id == "" {
		return r.palette[0]
	}
	if r.rdb != nil {
		if color, err := r.lookup(ctx, id); err == nil {
			return color
		}
	}
	return r.palette[hashIndex(id, len(r.palette))]
}

func (r *Registry) lookup(ctx context.Context, id string) (string, error) {
	val, err := r.rdb.HGet(ctx, r.assignKey(), id).Result()
	if err == nil {
		return r.colorAt(val), nil
	}
	if err != redis.Nil {
		return "", err
	}

	n, err := r.rdb.Incr(ctx, r.counterKey()).Result()
	if err != nil {
		return "", err
	}
	idx := int((n - 1) % int64(len(r.palette)))

	// HSETNX makes the first writer win; a concurrent caller that lost the
	// race reads the winner's index back so both converge on one color.
	set, err := r.rdb.HSetNX(ctx, r.assignKey(), id, strconv.Itoa(idx)).Result()
	if err != nil {
		return "", err
	}
	if !set {
		val, err := r.rdb.HGet(ctx, r.assignKey(), id).Result()
		if err != nil {
			return "", err
		}
		return r.colorAt(val), nil
	}
	return r.palette[idx], nil
}

func (r *Registry) colorAt(raw string) string {
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return r.palette[0]
	}
	return r.palette[idx%len(r.palette)]
}

func hashIndex(id string, size int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(size))
}
