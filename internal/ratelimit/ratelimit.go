package ratelimit

import (
	"context"
	"time"

	"github.com/justsurfingit/jobtracker/internal/authz"
)

// Class groups endpoints that share a limiter.
type Class string

const (
	ClassQuery    Class = "query"
	ClassMutation Class = "mutation"
	// ClassAI covers calls that hit the paid inference API.
	ClassAI Class = "ai"
)

// Config holds limiter configuration.
type Config struct {
	// Name labels metrics and namespaces shared-store keys.
	Name string
	// Window is the fixed window length.
	Window time.Duration
	// MaxRequests is the ceiling per key per window.
	MaxRequests int
	// SweepInterval is how often stale records are removed. Defaults to Window.
	SweepInterval time.Duration
}

// Result is the outcome of a single check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a denied caller should wait before the window resets.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Checker counts one request for key and reports whether it is admitted.
type Checker interface {
	Check(ctx context.Context, key string) (Result, error)
}

// Stats is implemented by checkers that can report how many keys they track.
type Stats interface {
	Len() int
}

// Limiters holds one checker per endpoint class with independently tuned ceilings.
type Limiters struct {
	Query    Checker
	Mutation Checker
	AI       Checker
}

func (l Limiters) For(class Class) Checker {
	switch class {
	case ClassMutation:
		return l.Mutation
	case ClassAI:
		return l.AI
	default:
		return l.Query
	}
}

// Stop halts background sweeps of any in-memory checkers.
func (l Limiters) Stop() {
	for _, c := range []Checker{l.Query, l.Mutation, l.AI} {
		if s, ok := c.(interface{ Stop() }); ok {
			s.Stop()
		}
	}
}

// Key builds the per-caller key: user:<id>:<class> or anon:<ip>:<class>.
func Key(caller authz.Caller, class Class) string {
	if caller.Authenticated() {
		return "user:" + caller.UserID + ":" + string(class)
	}
	ip := caller.ClientIP
	if ip == "" {
		ip = "unknown"
	}
	return "anon:" + ip + ":" + string(class)
}

func defaults(cfg Config) Config {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 60
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = cfg.Window
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	return cfg
}

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}

// Describe summarizes a checker for operators. TrackedKeys is -1 when the store
// cannot report it.
func Describe(c Checker) Snapshot {
	snap := Snapshot{Store: "none", TrackedKeys: -1}
	if cfg, ok := c.(interface{ Config() Config }); ok {
		conf := cfg.Config()
		snap.Limit = conf.MaxRequests
		snap.WindowMs = conf.Window.Milliseconds()
	}
	if stats, ok := c.(Stats); ok {
		snap.TrackedKeys = stats.Len()
	}
	switch c.(type) {
	case *MemoryLimiter:
		snap.Store = "memory"
	case *RedisLimiter:
		snap.Store = "redis"
	}
	return snap
}

type Snapshot struct {
	Store       string `json:"store"`
	Limit       int    `json:"limit"`
	WindowMs    int64  `json:"windowMs"`
	TrackedKeys int    `json:"trackedKeys"`
}
