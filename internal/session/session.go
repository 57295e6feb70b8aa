// Package session keeps authenticated sessions in process memory with a
// sliding idle timeout. Expired sessions are evicted lazily by Get, or in
// bulk by Cleanup when the host schedules it.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultTimeout = time.Hour

// Identity is what a valid session resolves to.
type Identity struct {
	UserID int64
	Email  string
}

type record struct {
	identity     Identity
	createdAt    time.Time
	lastActivity time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*record
	timeout  time.Duration
	now      func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(timeout time.Duration, opts ...Option) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s := &Store{
		sessions: make(map[string]*record),
		timeout:  timeout,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewID returns a random session identifier.
func NewID() string {
	return uuid.NewString()
}

// Create stores a session under id, replacing any existing one.
func (s *Store) Create(id string, userID int64, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	s.sessions[id] = &record{
		identity:     Identity{UserID: userID, Email: email},
		createdAt:    now,
		lastActivity: now,
	}
}

// Get returns the identity behind id and marks the session active.
// A session idle for longer than the timeout is deleted and reported missing.
func (s *Store) Get(id string) (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return Identity{}, false
	}

	now := s.now()
	if s.expired(rec, now) {
		delete(s.sessions, id)
		return Identity{}, false
	}

	rec.lastActivity = now

	return rec.identity, true
}

// Destroy removes id. Missing ids are ignored.
func (s *Store) Destroy(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

// Cleanup deletes every idle-expired session and returns how many were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0

	for id, rec := range s.sessions {
		if s.expired(rec, now) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *Store) expired(rec *record, now time.Time) bool {
	return now.Sub(rec.lastActivity) > s.timeout
}
