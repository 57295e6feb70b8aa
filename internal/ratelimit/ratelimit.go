// Package ratelimit counts attempts per key inside a fixed window and
// rejects further attempts once the quota is spent.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type record struct {
	count   int
	resetAt time.Time
}

// Limiter is safe for concurrent use. Check-then-increment for a key runs
// under one lock, so count never exceeds maxAttempts.
type Limiter struct {
	mu          sync.Mutex
	records     map[string]*record
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func New(maxAttempts int, window time.Duration, opts ...Option) *Limiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &Limiter{
		records:     make(map[string]*record),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Check records an attempt for key. An exhausted key is not incremented,
// so ResetAt stays stable until the window rolls over.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	rec, ok := l.records[key]
	if !ok || now.After(rec.resetAt) {
		rec = &record{
			count:   1,
			resetAt: now.Add(l.window),
		}
		l.records[key] = rec

		return Result{
			Allowed:   true,
			Remaining: l.maxAttempts - 1,
			ResetAt:   rec.resetAt,
		}
	}

	if rec.count >= l.maxAttempts {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   rec.resetAt,
		}
	}

	rec.count++

	return Result{
		Allowed:   true,
		Remaining: l.maxAttempts - rec.count,
		ResetAt:   rec.resetAt,
	}
}

// Reset forgets every attempt recorded for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.records, key)
}

// Cleanup drops records whose window has passed and returns how many were removed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0

	for key, rec := range l.records {
		if now.After(rec.resetAt) {
			delete(l.records, key)
			removed++
		}
	}

	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.records)
}
