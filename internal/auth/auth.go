// Package auth resolves authenticated principals. The engine consumes an
// already-authenticated caller identity; session issuance itself belongs
// to the platform's auth service, which writes sessions into the shared
// session store.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotAuthenticated is returned when no principal is attached to the
// request context.
var ErrNotAuthenticated = errors.New("not authenticated")

// Session is an issued bearer session for a principal.
type Session struct {
	Token       string    `json:"token"`
	PrincipalID string    `json:"principal_id"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SessionStore resolves bearer tokens to sessions.
type SessionStore interface {
	GetSession(ctx context.Context, token string) (*Session, error)
	SaveSession(ctx context.Context, sess Session) error
	DeleteSession(ctx context.Context, token string) error
}

type contextKey struct{}

var principalKey contextKey

// WithPrincipal returns a context carrying the authenticated principal id.
func WithPrincipal(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, principalKey, principalID)
}

// GetPrincipal returns the authenticated principal id from the context.
func GetPrincipal(ctx context.Context) (string, error) {
	id, ok := ctx.Value(principalKey).(string)
	if !ok || id == "" {
		return "", ErrNotAuthenticated
	}
	return id, nil
}

// Middleware resolves the Authorization bearer token through the session
// store and attaches the principal to the request context. Requests
// without a valid token pass through unauthenticated; handlers decide
// whether to require a principal.
func Middleware(sessions SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.GetSession(r.Context(), token)
			if err != nil || sess == nil {
				next.ServeHTTP(w, r)
				return
			}
			if sess.Expired(time.Now()) {
				if err := sessions.DeleteSession(r.Context(), token); err != nil {
					log.Warn().Err(err).Msg("auth: failed to delete expired session")
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), sess.PrincipalID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
