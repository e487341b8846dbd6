package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/justsurfingit/jobtracker/internal/metrics"
)

type record struct {
	count       int
	windowStart time.Time
}

// MemoryLimiter keeps fixed-window counters in process memory. State is lost on
// restart and not shared between instances; use RedisLimiter for that.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*record
	config  Config
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type Option func(*MemoryLimiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *MemoryLimiter) { l.now = now }
}

// NewMemory creates the limiter and starts its background sweep. Call Stop to end it.
func NewMemory(cfg Config, opts ...Option) *MemoryLimiter {
	l := &MemoryLimiter{
		records: make(map[string]*record),
		config:  defaults(cfg),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.sweepLoop()

	return l
}

func (l *MemoryLimiter) Check(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[key]
	if !ok || !now.Before(rec.windowStart.Add(l.config.Window)) {
		rec = &record{count: 1, windowStart: now}
		l.records[key] = rec
		return l.result(true, rec), nil
	}

	if rec.count >= l.config.MaxRequests {
		return l.result(false, rec), nil
	}
	rec.count++
	return l.result(true, rec), nil
}

func (l *MemoryLimiter) result(allowed bool, rec *record) Result {
	return Result{
		Allowed:   allowed,
		Limit:     l.config.MaxRequests,
		Remaining: remaining(l.config.MaxRequests, rec.count),
		ResetAt:   rec.windowStart.Add(l.config.Window),
	}
}

// Sweep drops records whose window started more than two windows ago.
func (l *MemoryLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-2 * l.config.Window)
	for key, rec := range l.records {
		if rec.windowStart.Before(cutoff) {
			delete(l.records, key)
		}
	}
	metrics.RateLimitTrackedKeys.WithLabelValues(l.config.Name).Set(float64(len(l.records)))
}

func (l *MemoryLimiter) sweepLoop() {
	ticker := time.NewTicker(l.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (l *MemoryLimiter) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *MemoryLimiter) Config() Config {
	return l.config
}
