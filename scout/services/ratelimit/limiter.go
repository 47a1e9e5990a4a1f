// Package ratelimit implements the sliding-window admission gate in
// front of the research loop. Counters live in an external store; the
// limiter only derives window keys and decisions.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"scout/scout/utils/logging"
	"scout/scout/utils/metrics"
)

const (
	DefaultKeyPrefix  = "rate_limit"
	DefaultMaxRetries = 3
)

// ErrStore marks counter-store failures. Writes surface it to the
// caller ("unknown state, do not assume admitted"); reads never do, they
// fail open instead.
var ErrStore = errors.New("counter store unavailable")

// Store is the external counter abstraction consumed by the limiter.
// Increment and expiry must land atomically; the limiter assumes the
// store provides that, it does not lock.
type Store interface {
	IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (value string, found bool, err error)
}

// Config is immutable per check call.
type Config struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string // default "rate_limit"
	MaxRetries  int    // re-checks performed by Retry, default 3
}

func (c Config) withDefaults() Config {
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

type Limiter struct {
	store Store

	// Injected for deterministic tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(store Store) *Limiter {
	return &Limiter{
		store: store,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Result is built fresh on every check and never persisted.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
	TotalHits int

	limiter *Limiter
	cfg     Config
}

// RecordHit counts one admitted request against the current window. The
// counter TTL is the window rounded up to whole seconds, refreshed on
// every hit as part of the same atomic store operation.
func (l *Limiter) RecordHit(ctx context.Context, window time.Duration, prefix string) error {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	key, windowStart := WindowFor(l.now(), window, prefix)
	ttl := time.Duration(int64((window+time.Second-1)/time.Second)) * time.Second

	if _, err := l.store.IncrementWithExpiry(ctx, key, ttl); err != nil {
		logging.ErrorLogger.Error("rate limit hit not recorded",
			zap.String("key", key),
			zap.Time("window_start", windowStart),
			zap.Error(err),
		)
		return fmt.Errorf("%w: record hit %s: %v", ErrStore, key, err)
	}
	return nil
}

// CheckLimit reads the current window counter and derives the decision.
// A store read failure fails open: a broken counter store must degrade
// to permissive, not take the whole service down.
func (l *Limiter) CheckLimit(ctx context.Context, cfg Config) *Result {
	cfg = cfg.withDefaults()
	key, windowStart := WindowFor(l.now(), cfg.Window, cfg.KeyPrefix)
	resetTime := windowStart.Add(cfg.Window)

	val, found, err := l.store.Get(ctx, key)
	if err != nil {
		logging.ErrorLogger.Error("rate limit check failed open",
			zap.String("key", key),
			zap.Error(err),
		)
		metrics.RateLimitFailOpen.Inc()
		return &Result{
			Allowed:   true,
			Remaining: cfg.MaxRequests - 1,
			ResetTime: resetTime,
			TotalHits: 0,
			limiter:   l,
			cfg:       cfg,
		}
	}

	totalHits := 0
	if found {
		n, convErr := strconv.Atoi(val)
		if convErr != nil {
			logging.ErrorLogger.Error("rate limit counter not numeric",
				zap.String("key", key), zap.String("value", val))
		} else {
			totalHits = n
		}
	}

	remaining := cfg.MaxRequests - totalHits
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   totalHits < cfg.MaxRequests,
		Remaining: remaining,
		ResetTime: resetTime,
		TotalHits: totalHits,
		limiter:   l,
		cfg:       cfg,
	}
}

// Retry is the cooperative backoff helper attached to every result. An
// already-allowed result resolves immediately. A denied one sleeps out
// the remainder of the current window and re-checks, at most
// cfg.MaxRetries times; the wait is always "time left in this window",
// never exponential. Returns false once retries are exhausted, or the
// context error if cancelled while waiting.
func (r *Result) Retry(ctx context.Context) (bool, error) {
	if r.Allowed {
		return true, nil
	}
	current := r
	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		wait := current.ResetTime.Sub(r.limiter.now())
		if wait > 0 {
			if err := r.limiter.sleep(ctx, wait); err != nil {
				return false, err
			}
		}
		current = r.limiter.CheckLimit(ctx, r.cfg)
		if current.Allowed {
			return true, nil
		}
	}
	return false, nil
}
