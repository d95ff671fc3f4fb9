package safety

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled continuously at refillRate tokens
// per second.
type RateLimiter struct {
	name       string
	capacity   float64
	refillRate float64
	now        func() time.Time

	mutex      sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(name string, capacity int, refillRate float64) *RateLimiter {
	return &RateLimiter{
		name:       name,
		capacity:   float64(capacity),
		refillRate: refillRate,
		now:        time.Now,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// SetClock overrides time.Now and restarts refill accounting from it.
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.now = now
	rl.lastRefill = now()
}

// Allow checks if an operation is allowed under the rate limit
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN takes n tokens if available.
func (rl *RateLimiter) AllowN(n int) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refillLocked()
	if rl.tokens >= float64(n) {
		rl.tokens -= float64(n)
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rl.waitTime()):
		}
	}
}

func (rl *RateLimiter) refillLocked() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastRefill = now
}

func (rl *RateLimiter) waitTime() time.Duration {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refillLocked()
	if rl.tokens >= 1 || rl.refillRate <= 0 {
		return 10 * time.Millisecond
	}
	return time.Duration((1-rl.tokens)/rl.refillRate*float64(time.Second)) + time.Millisecond
}

// RateLimiterStats holds statistics about a rate limiter
type RateLimiterStats struct {
	Name       string  `json:"name"`
	Capacity   int     `json:"capacity"`
	Tokens     float64 `json:"tokens"`
	RefillRate float64 `json:"refill_rate"`
}

// GetStats returns current statistics about the rate limiter
func (rl *RateLimiter) GetStats() RateLimiterStats {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refillLocked()
	return RateLimiterStats{
		Name:       rl.name,
		Capacity:   int(rl.capacity),
		Tokens:     rl.tokens,
		RefillRate: rl.refillRate,
	}
}
