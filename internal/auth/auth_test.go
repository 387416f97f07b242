package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSessionStore is an in-memory SessionStore for middleware tests.
type memSessionStore struct {
	sessions map[string]Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]Session)}
}

func (m *memSessionStore) GetSession(_ context.Context, token string) (*Session, error) {
	sess, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (m *memSessionStore) SaveSession(_ context.Context, sess Session) error {
	m.sessions[sess.Token] = sess
	return nil
}

func (m *memSessionStore) DeleteSession(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func TestGetPrincipal(t *testing.T) {
	ctx := context.Background()

	_, err := GetPrincipal(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	id, err := GetPrincipal(WithPrincipal(ctx, "alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		{"", ""},
		{"Bearer tok-123", "tok-123"},
		{"bearer tok-123", "tok-123"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"Bearer  tok-123", "tok-123"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.expected, bearerToken(r), "header %q", tt.header)
	}
}

func TestMiddleware(t *testing.T) {
	store := newMemSessionStore()
	now := time.Now()

	require.NoError(t, store.SaveSession(context.Background(), Session{
		Token:       "tok-valid",
		PrincipalID: "alice",
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}))
	require.NoError(t, store.SaveSession(context.Background(), Session{
		Token:       "tok-expired",
		PrincipalID: "bob",
		CreatedAt:   now.Add(-2 * time.Hour),
		ExpiresAt:   now.Add(-time.Hour),
	}))

	var gotPrincipal string
	var gotErr error
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal, gotErr = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(authHeader string) {
		gotPrincipal, gotErr = "", nil
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if authHeader != "" {
			r.Header.Set("Authorization", authHeader)
		}
		handler.ServeHTTP(httptest.NewRecorder(), r)
	}

	t.Run("valid token attaches the principal", func(t *testing.T) {
		serve("Bearer tok-valid")
		require.NoError(t, gotErr)
		assert.Equal(t, "alice", gotPrincipal)
	})

	t.Run("no token passes through unauthenticated", func(t *testing.T) {
		serve("")
		assert.ErrorIs(t, gotErr, ErrNotAuthenticated)
	})

	t.Run("unknown token passes through unauthenticated", func(t *testing.T) {
		serve("Bearer tok-unknown")
		assert.ErrorIs(t, gotErr, ErrNotAuthenticated)
	})

	t.Run("expired token is dropped and deleted", func(t *testing.T) {
		serve("Bearer tok-expired")
		assert.ErrorIs(t, gotErr, ErrNotAuthenticated)

		sess, err := store.GetSession(context.Background(), "tok-expired")
		require.NoError(t, err)
		assert.Nil(t, sess)
	})
}
