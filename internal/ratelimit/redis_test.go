package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, limit int, period time.Duration) (*redisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, limit, period).(*redisLimiter), mr
}

func TestRedisFixedWindow(t *testing.T) {
	l, _ := newRedisLimiter(t, 2, time.Minute)
	clock := time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return clock }

	ctx := context.Background()

	res, err := l.Allow(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, res.Remaining)

	res, err = l.Allow(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 0, res.Remaining)

	res, err = l.Allow(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, 0, res.Remaining)

	// Next window gets a fresh counter (key encodes the window start).
	clock = clock.Add(time.Minute)
	res, err = l.Allow(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestRedisLimiterSurfacesBackendErrors(t *testing.T) {
	l, mr := newRedisLimiter(t, 2, time.Minute)
	mr.Close()

	_, err := l.Allow(context.Background(), "9.9.9.9")
	assert.Error(t, err)
}
