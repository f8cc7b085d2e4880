package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trezcool/beasiswa/core"
)

const redisTimeout = 2 * time.Second

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter shares the counters between processes; it falls back to an
// InMemoryLimiter when Redis is unset or failing.
type RedisLimiter struct {
	client   redis.UniversalClient
	window   time.Duration
	prefix   string
	fallback *InMemoryLimiter
	logger   core.Logger
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedis(client redis.UniversalClient, window time.Duration, logger core.Logger) *RedisLimiter {
	if window <= 0 {
		window = defaultWindow
	}
	return &RedisLimiter{
		client:   client,
		window:   window,
		prefix:   "beasiswa:rl:",
		fallback: NewInMemory(window),
		logger:   logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	if l.client == nil {
		return l.fallback.Allow(ctx, key, limit)
	}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	res, err := rateLimitScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("rate limiter: redis unavailable, using in-memory counters", err)
		}
		return l.fallback.Allow(ctx, key, limit)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return l.fallback.Allow(ctx, key, limit)
	}

	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		ttlMs = l.window.Milliseconds()
	}
	return decide(int(count), limit, time.Now().UTC().Add(time.Duration(ttlMs)*time.Millisecond))
}

// New returns a RedisLimiter when a Redis address is configured, an InMemoryLimiter otherwise.
// The returned func releases the Redis connections.
func New(conf *core.Config, logger core.Logger) (Limiter, func() error) {
	if conf.Redis.Addr == "" {
		return NewInMemory(conf.RateLimit.Window), func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	return NewRedis(client, conf.RateLimit.Window, logger), client.Close
}
