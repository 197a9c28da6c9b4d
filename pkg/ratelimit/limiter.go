package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// MultiLimiter manages one rate limiter per upstream service
type MultiLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates an empty multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// AddLimiter registers a limiter for a service.
// requestsPerSecond may be fractional (100/day is ~0.0012).
func (m *MultiLimiter) AddLimiter(name string, requestsPerSecond float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Wait blocks until the named limiter allows an event or ctx is done.
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("limiter %s not found", name)
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (m *MultiLimiter) Allow(name string) bool {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return false
	}

	return limiter.Allow()
}

// Limiter names
const (
	LimiterAnthropic = "anthropic"
	LimiterGoogle    = "google"
	LimiterRSS       = "rss"
	LimiterUnsplash  = "unsplash"
)

// Limits configures NewLimiter. Zero values fall back to defaults.
type Limits struct {
	AnthropicPerMinute int
	GooglePerMinute    int
	RSSPerSecond       int
	UnsplashPerHour    int
}

// NewLimiter creates a limiter for every upstream the pipeline calls
func NewLimiter(l Limits) *MultiLimiter {
	if l.AnthropicPerMinute <= 0 {
		l.AnthropicPerMinute = 10
	}
	if l.GooglePerMinute <= 0 {
		l.GooglePerMinute = 60
	}
	if l.RSSPerSecond <= 0 {
		l.RSSPerSecond = 1
	}
	if l.UnsplashPerHour <= 0 {
		l.UnsplashPerHour = 50
	}

	m := NewMultiLimiter()
	m.AddLimiter(LimiterAnthropic, float64(l.AnthropicPerMinute)/60, 2)
	m.AddLimiter(LimiterGoogle, float64(l.GooglePerMinute)/60, 5)
	// RSS: be polite to feed hosts, burst covers one fan-out
	m.AddLimiter(LimiterRSS, float64(l.RSSPerSecond), 10)
	m.AddLimiter(LimiterUnsplash, float64(l.UnsplashPerHour)/3600, 5)
	return m
}

// NewDefaultLimiter creates a limiter with default rate limits
func NewDefaultLimiter() *MultiLimiter {
	return NewLimiter(Limits{})
}
