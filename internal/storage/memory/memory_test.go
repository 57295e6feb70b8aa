package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmail_auth/internal/storage"
)

func TestRepo(t *testing.T) {
	ctx := context.Background()
	r := New()

	id, err := r.SaveUser(ctx, "Alice@Example.com", "digest")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = r.SaveUser(ctx, "alice@example.com", "other")
	assert.ErrorIs(t, err, storage.ErrUserExists)

	u, err := r.User(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.False(t, u.IsVerified)

	require.NoError(t, r.SetEmailVerified(ctx, id))
	require.NoError(t, r.UpdatePasswordHash(ctx, id, "new-digest"))

	u, err = r.UserByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
	assert.Equal(t, "new-digest", u.PassHash)

	_, err = r.User(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	_, err = r.UserByID(ctx, 42)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.ErrorIs(t, r.SetEmailVerified(ctx, 42), storage.ErrUserNotFound)
	assert.ErrorIs(t, r.UpdatePasswordHash(ctx, 42, "x"), storage.ErrUserNotFound)
}
