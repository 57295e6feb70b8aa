// Package memory is a map-backed credential store for tests and local runs.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"webmail_auth/internal/models"
	"webmail_auth/internal/storage"
)

type Repo struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]models.User
	emails map[string]int64
}

func New() *Repo {
	return &Repo{
		users:  make(map[int64]models.User),
		emails: make(map[string]int64),
	}
}

func (r *Repo) SaveUser(_ context.Context, email string, passHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(email)
	if _, ok := r.emails[key]; ok {
		return 0, storage.ErrUserExists
	}

	r.nextID++
	r.users[r.nextID] = models.User{
		ID:        r.nextID,
		Email:     email,
		PassHash:  passHash,
		CreatedAt: time.Now(),
	}
	r.emails[key] = r.nextID

	return r.nextID, nil
}

func (r *Repo) User(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.emails[strings.ToLower(email)]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return r.users[id], nil
}

func (r *Repo) UserByID(_ context.Context, id int64) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (r *Repo) SetEmailVerified(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.IsVerified = true
	r.users[id] = u

	return nil
}

func (r *Repo) UpdatePasswordHash(_ context.Context, id int64, passHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.PassHash = passHash
	r.users[id] = u

	return nil
}
