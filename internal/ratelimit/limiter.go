// Package ratelimit provides per-tool token bucket rate limiting for MCP
// tools. Fitting a specification curve is orders of magnitude more expensive
// than listing runs, so each tool carries its own rate and burst.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter is a token bucket rate limiter keyed by caller-chosen strings.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and
// burst size. The burst size also serves as the initial number of tokens.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow reports whether a request for the given key should proceed,
// consuming one token when it does.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	b, ok := l.buckets[key]
	if !ok {
		// First request for this key: start with full burst
		b = &bucket{
			tokens: float64(l.burst),
			last:   now,
		}
		l.buckets[key] = b
	}

	// Refill tokens based on elapsed time
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += l.rate * elapsed
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.last = now
	}

	if b.tokens < 1.0 {
		return false
	}

	b.tokens--
	return true
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// Defaults returns the per-tool rate limiters for oster's MCP tools. Limits
// are generous for interactive use but keep an agent from re-fitting curves
// in a tight loop.
func Defaults() ToolLimiters {
	return ToolLimiters{
		"oster_generate": NewLimiter(10.0/60.0, 3), // 10/minute, burst 3
		"oster_run":      NewLimiter(6.0/60.0, 2),  // 6/minute, burst 2
		"oster_runs":     NewLimiter(1.0, 10),      // 60/minute, burst 10
		"oster_show":     NewLimiter(1.0, 10),      // 60/minute, burst 10
	}
}

// Check consumes a token for the named tool. Returns nil when allowed, an
// error when rate limited. Tools without a configured limiter are always
// allowed.
func (tl ToolLimiters) Check(tool string) error {
	limiter, ok := tl[tool]
	if !ok {
		return nil
	}

	if !limiter.Allow(tool) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", tool)
	}

	return nil
}
