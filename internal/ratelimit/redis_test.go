package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsurfingit/jobtracker/internal/authz"
)

func newTestRedisLimiter(t *testing.T, window time.Duration, max int, clock *fakeClock) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, Config{Name: "test", Window: window, MaxRequests: max})
	l.now = clock.Now
	return l, mr
}

func TestRedisLimiterWindow(t *testing.T) {
	clock := newFakeClock()
	l, mr := newTestRedisLimiter(t, time.Minute, 3, clock)

	for i := 1; i <= 3; i++ {
		res := mustCheck(t, l, "user:u-1:mutation")
		assert.True(t, res.Allowed, "call %d should be admitted", i)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 3-i, res.Remaining)
	}

	denied := mustCheck(t, l, "user:u-1:mutation")
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.WithinDuration(t, clock.Now().Truncate(time.Minute).Add(time.Minute), denied.ResetAt, 0)

	again := mustCheck(t, l, "user:u-1:mutation")
	assert.False(t, again.Allowed)
	assert.Equal(t, 0, again.Remaining, "remaining never goes negative")

	assert.True(t, mustCheck(t, l, "user:u-2:mutation").Allowed, "keys are independent")

	key, _ := l.windowKey("user:u-1:mutation", clock.Now())
	count, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "5", count)
	assert.Equal(t, 2*time.Minute, mr.TTL(key))

	clock.Advance(time.Minute)
	fresh := mustCheck(t, l, "user:u-1:mutation")
	assert.True(t, fresh.Allowed)
	assert.Equal(t, 2, fresh.Remaining)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(key), "old windows expire on their own")
}

func TestRedisLimiterConcurrentCallsNeverExceedMax(t *testing.T) {
	clock := newFakeClock()
	l, _ := newTestRedisLimiter(t, time.Minute, 10, clock)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Check(context.Background(), "anon:10.0.0.1:query")
			if assert.NoError(t, err) && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestRedisLimiterStoreErrors(t *testing.T) {
	clock := newFakeClock()
	l, mr := newTestRedisLimiter(t, time.Minute, 1, clock)
	mr.Close()

	_, err := l.Check(context.Background(), "user:u-1:mutation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit increment")

	user := authz.Caller{UserID: "u-1"}
	r := newLimitedRouter(l, &user)
	assert.Equal(t, http.StatusOK, post(r, "192.168.1.1:1234").Code)
	assert.Equal(t, http.StatusOK, post(r, "192.168.1.1:1234").Code)
}
