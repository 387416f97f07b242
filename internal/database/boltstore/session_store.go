package boltstore

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"tangled.org/tanager.social/tanager/internal/auth"
)

// SessionStore implements auth.SessionStore using BoltDB for persistence.
// It stores bearer sessions keyed by token, allowing sessions to survive
// server restarts.
type SessionStore struct {
	db *bolt.DB
}

// Ensure SessionStore implements auth.SessionStore
var _ auth.SessionStore = (*SessionStore)(nil)

// GetSession retrieves a session by token. Returns nil when the token is
// unknown.
func (s *SessionStore) GetSession(ctx context.Context, token string) (*auth.Session, error) {
	var sess auth.Session
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSessions)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		data := bucket.Get([]byte(token))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &sess)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &sess, nil
}

// SaveSession persists a session (upsert operation).
func (s *SessionStore) SaveSession(ctx context.Context, sess auth.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSessions)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}
		return bucket.Put([]byte(sess.Token), data)
	})
}

// DeleteSession removes a session by token.
func (s *SessionStore) DeleteSession(ctx context.Context, token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSessions)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}
		return bucket.Delete([]byte(token))
	})
}
