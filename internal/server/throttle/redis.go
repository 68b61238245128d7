package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sampleapp/internal/logging"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "sampleapp:throttle:"

// redisClient is the subset of *redis.Client the limiter uses.
type redisClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Close() error
}

// RedisLimiter is a fixed-window counter in Redis. Redis failures allow the
// attempt and are logged.
type RedisLimiter struct {
	client  redisClient
	log     logging.Logger
	prefix  string
	limit   int
	window  time.Duration
	timeout time.Duration
}

// NewRedisLimiter connects to addr and verifies the connection with PING.
func NewRedisLimiter(ctx context.Context, addr string, limit int, window time.Duration, log logging.Logger) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisLimiter(client, limit, window, log), nil
}

func newRedisLimiter(client redisClient, limit int, window time.Duration, log logging.Logger) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client:  client,
		log:     log.With("module", "throttle"),
		prefix:  defaultPrefix,
		limit:   limit,
		window:  window,
		timeout: 250 * time.Millisecond,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) Decision {
	if rl.limit <= 0 {
		return Decision{Allowed: true}
	}

	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	counter, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.log.Error(ctx, "redis limiter error", "op", "incr", "error", err)
		return Decision{Allowed: true}
	}
	if counter == 1 {
		if err := rl.client.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			rl.log.Error(ctx, "redis limiter error", "op", "expire", "error", err)
		}
	}

	d := Decision{Allowed: int(counter) <= rl.limit, Count: int(counter)}
	if !d.Allowed {
		ttl, err := rl.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl <= 0 {
			ttl = rl.window
		}
		d.RetryAfter = ttl
	}
	return d
}

func (rl *RedisLimiter) Close() error {
	return rl.client.Close()
}
