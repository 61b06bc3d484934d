// Package ratelimit implements an in-memory per-owner token bucket.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// Limiter gives every owner limit tokens per window, refilled continuously.
type Limiter struct {
	mu      sync.Mutex
	buckets map[int64]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[int64]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
		logger:  slog.Default().With("component", "rate-limiter"),
	}
}

// Allow consumes one token of ownerID and reports whether one was left.
func (l *Limiter) Allow(ownerID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[ownerID]
	if !ok {
		l.buckets[ownerID] = &bucket{tokens: float64(l.limit - 1), lastCheck: now}
		return l.limit > 0
	}

	rate := float64(l.limit) / l.window.Seconds()
	b.tokens = min(b.tokens+now.Sub(b.lastCheck).Seconds()*rate, float64(l.limit))
	b.lastCheck = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter is the wait until ownerID has a token again.
func (l *Limiter) RetryAfter(ownerID int64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ownerID]
	if !ok || b.tokens >= 1 || l.limit <= 0 {
		return 0
	}
	perToken := l.window / time.Duration(l.limit)
	return time.Duration((1 - b.tokens) * float64(perToken))
}

// Run evicts buckets idle for two windows, every interval, until ctx is
// cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := l.evict(l.now().Add(-2 * l.window)); n > 0 {
				l.logger.Debug("evicted idle buckets", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (l *Limiter) evict(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for owner, b := range l.buckets {
		if b.lastCheck.Before(cutoff) {
			delete(l.buckets, owner)
			n++
		}
	}
	return n
}
