package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/sampleapp/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type fakeRedis struct {
	counts    map[string]int64
	expires   map[string]time.Duration
	ttl       time.Duration
	incrErr   error
	expireErr error
	closed    bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, expires: map[string]time.Duration{}, ttl: 42 * time.Second}
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	if f.incrErr != nil {
		cmd.SetErr(f.incrErr)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeRedis) Expire(ctx context.Context, key string, exp time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "expire", key, exp)
	if f.expireErr != nil {
		cmd.SetErr(f.expireErr)
		return cmd
	}
	f.expires[key] = exp
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) TTL(ctx context.Context, key string) *redis.DurationCmd {
	cmd := redis.NewDurationCmd(ctx, time.Second, "ttl", key)
	cmd.SetVal(f.ttl)
	return cmd
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	fr := newFakeRedis()
	rl := newRedisLimiter(fr, 2, time.Minute, logging.Nop())
	ctx := context.Background()

	d := rl.Allow(ctx, "login:alice@example.com")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, time.Minute, fr.expires[defaultPrefix+"login:alice@example.com"])

	assert.True(t, rl.Allow(ctx, "login:alice@example.com").Allowed)

	d = rl.Allow(ctx, "login:alice@example.com")
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Count)
	assert.Equal(t, 42*time.Second, d.RetryAfter)

	assert.True(t, rl.Allow(ctx, "login:bob@example.com").Allowed, "keys are independent")
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	fr := newFakeRedis()
	fr.incrErr = errors.New("connection refused")
	rl := newRedisLimiter(fr, 1, time.Minute, logging.Nop())

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow(context.Background(), "k").Allowed)
	}
}

func TestRedisLimiter_ExpireErrorStillCounts(t *testing.T) {
	fr := newFakeRedis()
	fr.expireErr = errors.New("readonly")
	rl := newRedisLimiter(fr, 1, time.Minute, logging.Nop())

	assert.True(t, rl.Allow(context.Background(), "k").Allowed)
	assert.False(t, rl.Allow(context.Background(), "k").Allowed)
}

func TestRedisLimiter_RetryAfterFallsBackToWindow(t *testing.T) {
	fr := newFakeRedis()
	fr.ttl = -1
	rl := newRedisLimiter(fr, 1, 0, logging.Nop())

	rl.Allow(context.Background(), "k")
	d := rl.Allow(context.Background(), "k")
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)
}

func TestRedisLimiter_NonPositiveLimitDisables(t *testing.T) {
	fr := newFakeRedis()
	rl := newRedisLimiter(fr, 0, time.Minute, logging.Nop())

	assert.True(t, rl.Allow(context.Background(), "k").Allowed)
	assert.Empty(t, fr.counts)
}

func TestRedisLimiter_Close(t *testing.T) {
	fr := newFakeRedis()
	rl := newRedisLimiter(fr, 1, time.Minute, logging.Nop())
	assert.NoError(t, rl.Close())
	assert.True(t, fr.closed)
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	assert.True(t, l.Allow(context.Background(), "k").Allowed)
	assert.NoError(t, l.Close())
}

var _ Limiter = (*RedisLimiter)(nil)
