package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisLimiter shares fixed-window counters between instances. Each window gets
// its own key, so no read-modify-write is needed: INCR is atomic on the server.
// Unlike MemoryLimiter, denied calls are still counted; Remaining is floored at 0.
type RedisLimiter struct {
	client redis.Cmdable
	config Config
	now    func() time.Time
}

var _ Checker = (*RedisLimiter)(nil)

func NewRedis(client redis.Cmdable, cfg Config) *RedisLimiter {
	return &RedisLimiter{client: client, config: defaults(cfg), now: time.Now}
}

// NewRedisClient parses a redis:// URL and verifies connectivity.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (l *RedisLimiter) Check(ctx context.Context, key string) (Result, error) {
	redisKey, windowStart := l.windowKey(key, l.now())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, 2*l.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit increment %s: %w", redisKey, err)
	}

	count := int(incr.Val())
	return Result{
		Allowed:   count <= l.config.MaxRequests,
		Limit:     l.config.MaxRequests,
		Remaining: remaining(l.config.MaxRequests, count),
		ResetAt:   windowStart.Add(l.config.Window),
	}, nil
}

// windowKey aligns now to the start of its window and returns the counter key.
func (l *RedisLimiter) windowKey(key string, now time.Time) (string, time.Time) {
	windowMs := l.config.Window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}
	index := now.UnixMilli() / windowMs
	return fmt.Sprintf("ratelimit:%s:%s:%d", l.config.Name, key, index), time.UnixMilli(index * windowMs)
}

func (l *RedisLimiter) Config() Config {
	return l.config
}
