package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthyNilSafe(t *testing.T) {
	ctx := context.Background()

	var d *DB
	assert.False(t, d.Healthy(ctx))
	assert.False(t, (&DB{}).Healthy(ctx))

	var r *Redis
	assert.False(t, r.Healthy(ctx))
	assert.False(t, (&Redis{}).Healthy(ctx))
}

func TestNewRedisPoolSizing(t *testing.T) {
	r := NewRedis("localhost:6379", 0)
	assert.Equal(t, 8, r.Client.Options().PoolSize)

	r = NewRedis("localhost:6379", 32)
	assert.Equal(t, 32, r.Client.Options().PoolSize)
}

func TestUnavailableWrapsNilAsNil(t *testing.T) {
	assert.NoError(t, Unavailable(nil))
	assert.ErrorIs(t, Unavailable(assert.AnError), ErrUnavailable)
}
