// Package ratelimit implements per-key token bucket quotas.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// Reset is how long until the next token is available.
	Reset   time.Duration
	Blocked bool
}

// Config configures a Limiter. Requests tokens refill evenly over Window.
type Config struct {
	Requests int
	Window   time.Duration
	// Blocked keys are always denied.
	Blocked []string
	// IdleTTL is how long an unused bucket is kept before Cleanup drops it.
	IdleTTL time.Duration
	Now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	buckets map[string]*bucket
	blocked map[string]struct{}
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	if cfg.Requests <= 0 {
		cfg.Requests = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * cfg.Window
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	blocked := make(map[string]struct{}, len(cfg.Blocked))
	for _, k := range cfg.Blocked {
		if k != "" {
			blocked[k] = struct{}{}
		}
	}

	return &Limiter{
		buckets: make(map[string]*bucket),
		blocked: blocked,
		rate:    rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		burst:   cfg.Requests,
		idleTTL: cfg.IdleTTL,
		now:     cfg.Now,
	}
}

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(_ context.Context, key string) (Decision, error) {
	if _, ok := l.blocked[key]; ok {
		return Decision{Blocked: true}, nil
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Blocked: true}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Remaining: 0, Reset: delay}, nil
	}

	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	var reset time.Duration
	if remaining < l.burst {
		reset = l.untilNextToken(b.limiter, now)
	}

	return Decision{Allowed: true, Remaining: remaining, Reset: reset}, nil
}

func (l *Limiter) untilNextToken(lim *rate.Limiter, now time.Time) time.Duration {
	tokens := lim.TokensAt(now)
	frac := tokens - float64(int(tokens))
	return time.Duration((1 - frac) / float64(l.rate) * float64(time.Second))
}

// Cleanup drops buckets idle for longer than IdleTTL. Call it periodically.
func (l *Limiter) Cleanup() int {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
