package boltstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tangled.org/tanager.social/tanager/internal/auth"
)

func setupTestSessionStore(t *testing.T) *SessionStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test-sessions.db")

	store, err := Open(Options{Path: dbPath})
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store.SessionStore()
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	store := setupTestSessionStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("save and get session", func(t *testing.T) {
		sess := auth.Session{
			Token:       "tok-abc",
			PrincipalID: "alice",
			CreatedAt:   now,
			ExpiresAt:   now.Add(24 * time.Hour),
		}
		require.NoError(t, store.SaveSession(ctx, sess))

		got, err := store.GetSession(ctx, "tok-abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.PrincipalID)
		assert.True(t, got.ExpiresAt.Equal(sess.ExpiresAt))
	})

	t.Run("unknown token returns nil", func(t *testing.T) {
		got, err := store.GetSession(ctx, "tok-missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		sess := auth.Session{Token: "tok-abc", PrincipalID: "bob", CreatedAt: now}
		require.NoError(t, store.SaveSession(ctx, sess))

		got, err := store.GetSession(ctx, "tok-abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "bob", got.PrincipalID)
	})

	t.Run("delete session", func(t *testing.T) {
		require.NoError(t, store.DeleteSession(ctx, "tok-abc"))

		got, err := store.GetSession(ctx, "tok-abc")
		require.NoError(t, err)
		assert.Nil(t, got)

		// Deleting a missing token is not an error.
		require.NoError(t, store.DeleteSession(ctx, "tok-abc"))
	})
}

func TestSessionsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test-sessions.db")

	store, err := Open(Options{Path: dbPath})
	require.NoError(t, err)

	sess := auth.Session{
		Token:       "tok-persist",
		PrincipalID: "carol",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.SessionStore().SaveSession(ctx, sess))
	require.NoError(t, store.Close())

	reopened, err := Open(Options{Path: dbPath})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.SessionStore().GetSession(ctx, "tok-persist")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "carol", got.PrincipalID)
}
