package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(limit, window)
	l.now = clock.now
	return l, clock
}

func TestAllowConsumesAndRefills(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	for range 3 {
		assert.True(t, l.Allow(1))
	}
	assert.False(t, l.Allow(1))
	assert.True(t, l.Allow(2), "owners have separate buckets")
	assert.Equal(t, 20*time.Second, l.RetryAfter(1))

	clock.t = clock.t.Add(20 * time.Second)
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))
}

func TestRefillIsCapped(t *testing.T) {
	l, clock := newTestLimiter(2, time.Second)
	l.Allow(1)
	clock.t = clock.t.Add(time.Hour)

	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))
}

func TestEvictDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(1, time.Second)
	l.Allow(1)
	clock.t = clock.t.Add(10 * time.Second)
	l.Allow(2)

	assert.Equal(t, 1, l.evict(clock.t.Add(-2*time.Second)))
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, int64(2))
}
