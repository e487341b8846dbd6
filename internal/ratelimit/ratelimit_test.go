package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsurfingit/jobtracker/internal/authz"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, window time.Duration, max int, clock *fakeClock) *MemoryLimiter {
	t.Helper()
	l := NewMemory(Config{Name: "test", Window: window, MaxRequests: max, SweepInterval: time.Hour}, WithClock(clock.Now))
	t.Cleanup(l.Stop)
	return l
}

func mustCheck(t *testing.T, l Checker, key string) Result {
	t.Helper()
	res, err := l.Check(context.Background(), key)
	require.NoError(t, err)
	return res
}

func TestMemoryLimiterWindow(t *testing.T) {
	const window = time.Minute
	const max = 3

	t.Run("admits max requests then denies", func(t *testing.T) {
		clock := newFakeClock()
		l := newTestLimiter(t, window, max, clock)
		start := clock.Now()

		for i := 0; i < max; i++ {
			res := mustCheck(t, l, "user:u-1:query")
			assert.True(t, res.Allowed, "request %d should be allowed", i+1)
			assert.Equal(t, start.Add(window), res.ResetAt)
			clock.Advance(time.Second)
		}

		res := mustCheck(t, l, "user:u-1:query")
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
		assert.Equal(t, start.Add(window), res.ResetAt)
	})

	t.Run("denied calls do not extend the window or count", func(t *testing.T) {
		clock := newFakeClock()
		l := newTestLimiter(t, window, 1, clock)

		assert.True(t, mustCheck(t, l, "k").Allowed)
		for i := 0; i < 5; i++ {
			assert.False(t, mustCheck(t, l, "k").Allowed)
		}
		clock.Advance(window)
		res := mustCheck(t, l, "k")
		assert.True(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
	})

	t.Run("window resets exactly at windowStart plus window", func(t *testing.T) {
		clock := newFakeClock()
		l := newTestLimiter(t, window, max, clock)
		start := clock.Now()

		for i := 0; i < max; i++ {
			mustCheck(t, l, "k")
		}
		clock.Advance(window - time.Millisecond)
		assert.False(t, mustCheck(t, l, "k").Allowed)

		clock.Advance(time.Millisecond)
		res := mustCheck(t, l, "k")
		assert.True(t, res.Allowed)
		assert.Equal(t, max-1, res.Remaining, "fresh window starts with count 1")
		assert.Equal(t, start.Add(2*window), res.ResetAt)
	})

	t.Run("keys are independent", func(t *testing.T) {
		clock := newFakeClock()
		l := newTestLimiter(t, window, 1, clock)

		assert.True(t, mustCheck(t, l, "a").Allowed)
		assert.False(t, mustCheck(t, l, "a").Allowed)
		assert.True(t, mustCheck(t, l, "b").Allowed)
		assert.Equal(t, 2, l.Len())
	})
}

func TestMemoryLimiterRemaining(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, time.Minute, 4, clock)

	want := []int{3, 2, 1, 0, 0, 0}
	for i, w := range want {
		res := mustCheck(t, l, "k")
		assert.Equal(t, w, res.Remaining, "call %d", i+1)
		assert.GreaterOrEqual(t, res.Remaining, 0)
		assert.Equal(t, 4, res.Limit)
	}
}

func TestMemoryLimiterSweep(t *testing.T) {
	const window = time.Minute

	t.Run("removes records older than two windows", func(t *testing.T) {
		clock := newFakeClock()
		l := newTestLimiter(t, window, 5, clock)

		mustCheck(t, l, "stale")
		clock.Advance(time.Minute)
		mustCheck(t, l, "fresh")
		require.Equal(t, 2, l.Len())

		clock.Advance(2*window - time.Minute + time.Millisecond)
		l.Sweep()

		assert.Equal(t, 1, l.Len())
		l.mu.Lock()
		_, staleExists := l.records["stale"]
		_, freshExists := l.records["fresh"]
		l.mu.Unlock()
		assert.False(t, staleExists)
		assert.True(t, freshExists)
	})

	t.Run("keeps records exactly two windows old", func(t *testing.T) {
		clock := newFakeClock()
		l := newTestLimiter(t, window, 5, clock)

		mustCheck(t, l, "k")
		clock.Advance(2 * window)
		l.Sweep()
		assert.Equal(t, 1, l.Len())
	})

	t.Run("background sweep runs on its own", func(t *testing.T) {
		clock := newFakeClock()
		l := NewMemory(Config{Window: window, MaxRequests: 5, SweepInterval: 10 * time.Millisecond}, WithClock(clock.Now))
		defer l.Stop()

		mustCheck(t, l, "k")
		clock.Advance(3 * window)

		assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("Stop is idempotent", func(t *testing.T) {
		l := NewMemory(Config{Window: window, MaxRequests: 1})
		l.Stop()
		l.Stop()
	})
}

func TestMemoryLimiterConcurrentCallsNeverExceedMax(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, time.Minute, 10, clock)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := l.Check(context.Background(), "k")
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestDefaults(t *testing.T) {
	l := NewMemory(Config{})
	defer l.Stop()

	cfg := l.Config()
	assert.Equal(t, time.Minute, cfg.Window)
	assert.Equal(t, 60, cfg.MaxRequests)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, "default", cfg.Name)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "user:u-1:mutation", Key(authz.Caller{UserID: "u-1"}, ClassMutation))
	assert.Equal(t, "anon:10.0.0.1:ai", Key(authz.Anonymous("10.0.0.1"), ClassAI))
	assert.Equal(t, "anon:unknown:query", Key(authz.Caller{}, ClassQuery))
}

func TestResultRetryAfter(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 5*time.Second, Result{ResetAt: now.Add(5 * time.Second)}.RetryAfter(now))
	assert.Equal(t, time.Duration(0), Result{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}

func TestLimitersFor(t *testing.T) {
	q := NewMemory(Config{Name: "query"})
	m := NewMemory(Config{Name: "mutation"})
	a := NewMemory(Config{Name: "ai"})
	ls := Limiters{Query: q, Mutation: m, AI: a}
	defer ls.Stop()

	assert.Same(t, q, ls.For(ClassQuery))
	assert.Same(t, m, ls.For(ClassMutation))
	assert.Same(t, a, ls.For(ClassAI))

	t.Run("middleware uses the class limiter", func(t *testing.T) {
		strict := NewMemory(Config{Window: time.Minute, MaxRequests: 1, SweepInterval: time.Hour})
		loose := NewMemory(Config{Window: time.Minute, MaxRequests: 100, SweepInterval: time.Hour})
		classes := Limiters{Query: loose, Mutation: strict}
		defer classes.Stop()

		r := gin.New()
		r.Use(func(c *gin.Context) {
			authz.SetCaller(c, authz.Anonymous(c.ClientIP()))
			c.Next()
		})
		r.GET("/test", classes.Middleware(ClassQuery), func(c *gin.Context) { c.Status(http.StatusOK) })
		r.POST("/test", classes.Middleware(ClassMutation), func(c *gin.Context) { c.Status(http.StatusOK) })

		assert.Equal(t, http.StatusOK, post(r, "192.168.1.1:1234").Code)
		assert.Equal(t, http.StatusTooManyRequests, post(r, "192.168.1.1:1234").Code)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "99", w.Header().Get("X-RateLimit-Remaining"))
	})
}

func TestRedisWindowKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	l := NewRedis(client, Config{Name: "mutation", Window: time.Minute, MaxRequests: 5})
	now := time.UnixMilli(10*60_000 + 1234)

	key, start := l.windowKey("user:u-1:mutation", now)
	assert.Equal(t, "ratelimit:mutation:user:u-1:mutation:10", key)
	assert.Equal(t, time.UnixMilli(10*60_000), start)

	next, _ := l.windowKey("user:u-1:mutation", now.Add(time.Minute))
	assert.NotEqual(t, key, next)
}

type failingChecker struct{}

func (failingChecker) Check(context.Context, string) (Result, error) {
	return Result{}, errors.New("store down")
}

func newLimitedRouter(checker Checker, caller *authz.Caller) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if caller != nil {
			authz.SetCaller(c, *caller)
		} else {
			authz.SetCaller(c, authz.Anonymous(c.ClientIP()))
		}
		c.Next()
	})
	r.Use(Middleware(checker, ClassMutation))
	r.POST("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	return r
}

func post(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	t.Run("returns 429 with retry hint once exhausted", func(t *testing.T) {
		l := NewMemory(Config{Window: time.Minute, MaxRequests: 2, SweepInterval: time.Hour})
		defer l.Stop()
		user := authz.Caller{UserID: "u-1"}
		r := newLimitedRouter(l, &user)

		for i := 0; i < 2; i++ {
			w := post(r, "192.168.1.1:1234")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		}

		w := post(r, "192.168.1.1:1234")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))

		var body struct {
			Code         string `json:"code"`
			RetryAfterMs int64  `json:"retryAfterMs"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "TOO_MANY_REQUESTS", body.Code)
		assert.Greater(t, body.RetryAfterMs, int64(0))
		assert.LessOrEqual(t, body.RetryAfterMs, time.Minute.Milliseconds())
	})

	t.Run("anonymous callers are keyed by client ip", func(t *testing.T) {
		l := NewMemory(Config{Window: time.Minute, MaxRequests: 1, SweepInterval: time.Hour})
		defer l.Stop()
		r := newLimitedRouter(l, nil)

		assert.Equal(t, http.StatusOK, post(r, "192.168.1.1:1234").Code)
		assert.Equal(t, http.StatusTooManyRequests, post(r, "192.168.1.1:1234").Code)
		assert.Equal(t, http.StatusOK, post(r, "192.168.1.2:1234").Code)
	})

	t.Run("store errors let the request through", func(t *testing.T) {
		r := newLimitedRouter(failingChecker{}, nil)
		assert.Equal(t, http.StatusOK, post(r, "192.168.1.1:1234").Code)
	})

	t.Run("nil checker is a pass-through", func(t *testing.T) {
		r := newLimitedRouter(nil, nil)
		assert.Equal(t, http.StatusOK, post(r, "192.168.1.1:1234").Code)
	})
}

func TestDescribe(t *testing.T) {
	clock := newFakeClock()
	mem := newTestLimiter(t, time.Minute, 3, clock)
	mustCheck(t, mem, "a")
	mustCheck(t, mem, "b")

	snap := Describe(mem)
	assert.Equal(t, "memory", snap.Store)
	assert.Equal(t, 3, snap.Limit)
	assert.Equal(t, int64(60000), snap.WindowMs)
	assert.Equal(t, 2, snap.TrackedKeys)

	red := Describe(NewRedis(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), Config{MaxRequests: 10}))
	assert.Equal(t, "redis", red.Store)
	assert.Equal(t, -1, red.TrackedKeys)

	assert.Equal(t, "none", Describe(nil).Store)
}
