package executor

import (
	"context"
	"sync"
	"time"
)

// tokenBucket is a continuous-refill token-bucket rate limiter, grounded on
// internal/exchange/ratelimit.go's TokenBucket, copied pattern generalized
// here to be keyed per category per venue rather than hardcoded to one
// venue's three named buckets.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

func newTokenBucket(capacity, ratePerSecond float64) *tokenBucket {
	return &tokenBucket{tokens: capacity, capacity: capacity, rate: ratePerSecond, lastTime: time.Now()}
}

func (tb *tokenBucket) wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimiter groups per-category token buckets, one instance per venue.
type RateLimiter struct {
	Order  *tokenBucket
	Cancel *tokenBucket
	Book   *tokenBucket
}

// RateLimits configures a RateLimiter's three category buckets.
type RateLimits struct {
	OrderCapacity, OrderRate   float64
	CancelCapacity, CancelRate float64
	BookCapacity, BookRate     float64
}

// NewRateLimiter constructs a RateLimiter from venue-specific limits.
func NewRateLimiter(limits RateLimits) *RateLimiter {
	return &RateLimiter{
		Order:  newTokenBucket(limits.OrderCapacity, limits.OrderRate),
		Cancel: newTokenBucket(limits.CancelCapacity, limits.CancelRate),
		Book:   newTokenBucket(limits.BookCapacity, limits.BookRate),
	}
}
