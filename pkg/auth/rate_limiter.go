package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter provides rate limiting functionality
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// SlidingWindowLimiter implements sliding window rate limiting held in
// process memory. Good enough for a single instance; Lambda fleets use
// the DynamoDB-backed limiter instead.
type SlidingWindowLimiter struct {
	mu         sync.RWMutex
	windows    map[string]*window
	limit      int
	windowSize time.Duration
}

type window struct {
	requests []time.Time
	mu       sync.Mutex
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string]*window),
		limit:      limit,
		windowSize: windowSize,
	}
}

// Allow checks if a request is allowed
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	w, exists := l.windows[key]
	if !exists {
		w = &window{
			requests: make([]time.Time, 0),
		}
		l.windows[key] = w
	}
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-l.windowSize)

	// Drop requests that fell out of the window
	validRequests := w.requests[:0]
	for _, reqTime := range w.requests {
		if reqTime.After(windowStart) {
			validRequests = append(validRequests, reqTime)
		}
	}
	w.requests = validRequests

	if len(w.requests) >= l.limit {
		return false, nil
	}

	w.requests = append(w.requests, now)
	return true, nil
}

// Reset resets the rate limit for a key
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, key)
	return nil
}

// IPRateLimiter wraps a rate limiter for IP-based limiting
type IPRateLimiter struct {
	limiter RateLimiter
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	return &IPRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow checks if a request from an IP is allowed
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, fmt.Sprintf("ip:%s", ip))
}

// UserRateLimiter wraps a rate limiter for user-based limiting
type UserRateLimiter struct {
	limiter RateLimiter
}

// NewUserRateLimiter creates a new user-based rate limiter
func NewUserRateLimiter(requestsPerMinute int) *UserRateLimiter {
	return &UserRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow checks if a request from a user is allowed
func (l *UserRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	return l.limiter.Allow(ctx, fmt.Sprintf("user:%s", userID))
}
