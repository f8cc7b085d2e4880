package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/testutil"
)

func TestInMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC)
	lim := NewInMemory(time.Minute)
	lim.nowFunc = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		d := lim.Allow(ctx, "login:1.2.3.4", 3)
		assert.True(t, d.Allowed)
		assert.Equal(t, i, d.Count)
		assert.Equal(t, 3-i, d.Remaining)
	}
	d := lim.Allow(ctx, "login:1.2.3.4", 3)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Minute, d.RetryAfter(now))

	// other keys have their own counters
	assert.True(t, lim.Allow(ctx, "login:5.6.7.8", 3).Allowed)

	// a new window starts once the previous one is over
	now = now.Add(time.Minute + time.Second)
	d = lim.Allow(ctx, "login:1.2.3.4", 3)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
	assert.Len(t, lim.items, 1)
}

func TestInMemoryLimiter_Defaults(t *testing.T) {
	lim := NewInMemory(0)
	assert.Equal(t, time.Minute, lim.window)

	d := lim.Allow(context.Background(), "k", 0)
	assert.Equal(t, 1, d.Limit)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lim := NewRedis(client, time.Minute, &testutil.Logger{})
	for i := 1; i <= 2; i++ {
		d := lim.Allow(ctx, "register:1.2.3.4", 2)
		require.True(t, d.Allowed)
		assert.Equal(t, i, d.Count)
	}
	d := lim.Allow(ctx, "register:1.2.3.4", 2)
	assert.False(t, d.Allowed)
	assert.True(t, d.ResetAt.After(time.Now()))
	assert.True(t, mr.Exists("beasiswa:rl:register:1.2.3.4"))

	mr.FastForward(time.Minute + time.Second)
	d = lim.Allow(ctx, "register:1.2.3.4", 2)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestRedisLimiter_Fallback(t *testing.T) {
	ctx := context.Background()

	// no client
	lim := NewRedis(nil, time.Minute, nil)
	assert.True(t, lim.Allow(ctx, "k", 1).Allowed)
	assert.False(t, lim.Allow(ctx, "k", 1).Allowed)

	// redis down
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	logger := &testutil.Logger{}
	lim = NewRedis(client, time.Minute, logger)
	assert.True(t, lim.Allow(ctx, "k", 1).Allowed)
	assert.False(t, lim.Allow(ctx, "k", 1).Allowed)
	assert.NotEmpty(t, logger.Messages)
}

func TestNew(t *testing.T) {
	conf := core.NewTestConfig()
	lim, closeFn := New(conf, &testutil.Logger{})
	_, ok := lim.(*InMemoryLimiter)
	assert.True(t, ok)
	assert.NoError(t, closeFn())

	mr := miniredis.RunT(t)
	conf.Redis.Addr = mr.Addr()
	lim, closeFn = New(conf, &testutil.Logger{})
	_, ok = lim.(*RedisLimiter)
	assert.True(t, ok)
	assert.NoError(t, closeFn())
}
