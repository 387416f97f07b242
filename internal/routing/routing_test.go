package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tangled.org/tanager.social/tanager/internal/auth"
	"tangled.org/tanager.social/tanager/internal/database/boltstore"
	"tangled.org/tanager.social/tanager/internal/database/sqlitestore"
	"tangled.org/tanager.social/tanager/internal/handlers"
	"tangled.org/tanager.social/tanager/internal/trust"
)

// setupTestRouter wires the full stack: SQLite store, bolt sessions, and
// the middleware chain, the same way the server does at startup.
func setupTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	tmpDir := t.TempDir()

	store, err := sqlitestore.Open(filepath.Join(tmpDir, "tanager-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	sessions, err := boltstore.Open(boltstore.Options{Path: filepath.Join(tmpDir, "sessions.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		sessions.Close()
	})

	now := time.Now()
	require.NoError(t, store.CreateProfile(ctx, "admin1", "admin1.test", now))
	require.NoError(t, store.CreateProfile(ctx, "alice", "alice.test", now))
	require.NoError(t, store.GrantRole(ctx, trust.RoleAssignment{
		ID: "r1", UserID: "admin1", RoleType: trust.RoleAdmin, IsActive: true, CreatedAt: now,
	}))
	require.NoError(t, sessions.SessionStore().SaveSession(ctx, auth.Session{
		Token:       "tok-admin",
		PrincipalID: "admin1",
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}))

	svc := trust.NewService(store, store.ContentStore())
	h := handlers.NewHandler(svc, store, handlers.Config{})

	return SetupRouter(Config{
		Handlers: h,
		Sessions: sessions.SessionStore(),
		Logger:   zerolog.Nop(),
	})
}

func TestRouter(t *testing.T) {
	router := setupTestRouter(t)

	serve := func(method, path, token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w
	}

	t.Run("healthz is open", func(t *testing.T) {
		w := serve(http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("metrics is open", func(t *testing.T) {
		w := serve(http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "tanager_")
	})

	t.Run("audit log requires a session", func(t *testing.T) {
		w := serve(http.MethodGet, "/api/audit-log", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = serve(http.MethodGet, "/api/audit-log", "tok-unknown")
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = serve(http.MethodGet, "/api/audit-log", "tok-admin")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("path parameters reach the handler", func(t *testing.T) {
		w := serve(http.MethodGet, "/api/roles/admin1", "tok-admin")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"is_admin":true`)
	})

	t.Run("unknown route is a 404", func(t *testing.T) {
		w := serve(http.MethodGet, "/api/nope", "tok-admin")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
