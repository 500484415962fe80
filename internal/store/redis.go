package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the shared client. The snapshot cache, the color registry and
// the marking-event queue all ride on the same instance, so the pool is sized
// from config rather than the driver default.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts. poolSize <= 0 falls back to
// a small pool suited to the api/worker pair.
func NewRedis(addr string, poolSize int) *Redis {
	if poolSize <= 0 {
		poolSize = 8
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}
