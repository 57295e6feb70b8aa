package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New(5, 15*time.Minute, WithClock(clock.Now)), clock
}

func TestLimiter_Threshold(t *testing.T) {
	l, clock := newTestLimiter(t)

	for i := 1; i <= 5; i++ {
		res := l.Check("10.0.0.1|alice@example.com")
		require.True(t, res.Allowed, "attempt %d", i)
		assert.Equal(t, 5-i, res.Remaining, "attempt %d", i)
		assert.Equal(t, clock.Now().Add(15*time.Minute), res.ResetAt)
	}

	res := l.Check("10.0.0.1|alice@example.com")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	l.Reset("10.0.0.1|alice@example.com")

	res = l.Check("10.0.0.1|alice@example.com")
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
}

func TestLimiter_ExhaustedDoesNotMoveResetAt(t *testing.T) {
	l, clock := newTestLimiter(t)

	var first Result
	for i := 0; i < 5; i++ {
		first = l.Check("k")
	}

	clock.Advance(time.Minute)
	res1 := l.Check("k")
	clock.Advance(time.Minute)
	res2 := l.Check("k")

	assert.False(t, res1.Allowed)
	assert.False(t, res2.Allowed)
	assert.Equal(t, first.ResetAt, res1.ResetAt)
	assert.Equal(t, first.ResetAt, res2.ResetAt)

	l.mu.Lock()
	assert.Equal(t, 5, l.records["k"].count)
	l.mu.Unlock()
}

func TestLimiter_WindowRollover(t *testing.T) {
	l, clock := newTestLimiter(t)

	var exhausted Result
	for i := 0; i < 6; i++ {
		exhausted = l.Check("k")
	}
	require.False(t, exhausted.Allowed)

	clock.Advance(15 * time.Minute)
	res := l.Check("k")
	assert.False(t, res.Allowed, "window still open at resetAt")

	clock.Advance(time.Millisecond)
	res = l.Check("k")
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.True(t, res.ResetAt.After(exhausted.ResetAt))
	assert.Equal(t, clock.Now().Add(15*time.Minute), res.ResetAt)
}

func TestLimiter_SeparateKeys(t *testing.T) {
	l, _ := newTestLimiter(t)

	for i := 0; i < 5; i++ {
		l.Check("a")
	}

	assert.False(t, l.Check("a").Allowed)
	assert.True(t, l.Check("b").Allowed)
}

func TestLimiter_ResetUnknownKey(t *testing.T) {
	l, _ := newTestLimiter(t)

	l.Reset("missing")
	assert.Equal(t, 0, l.Len())
}

func TestLimiter_Cleanup(t *testing.T) {
	l, clock := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		l.Check(fmt.Sprintf("old-%d", i))
	}
	clock.Advance(10 * time.Minute)
	l.Check("fresh")

	clock.Advance(5*time.Minute + time.Second)

	assert.Equal(t, 3, l.Cleanup())
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_Defaults(t *testing.T) {
	l := New(0, 0)

	assert.Equal(t, DefaultMaxAttempts, l.maxAttempts)
	assert.Equal(t, DefaultWindow, l.window)
}

func TestLimiter_ConcurrentSameKey(t *testing.T) {
	l := New(100, time.Minute)

	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
	)

	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check("shared").Allowed {
				allowed.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(100), allowed.Load())

	l.mu.Lock()
	assert.Equal(t, 100, l.records["shared"].count)
	l.mu.Unlock()
}
