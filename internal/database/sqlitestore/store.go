// Package sqlitestore provides the SQLite-backed system of record for the
// trust engine. All composite writes run as immediate-mode transactions so
// that conflicting suspensions of the same user serialize on the single
// writer; a partial unique index backstops the one-active-restriction
// invariant.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "modernc.org/sqlite"

	"tangled.org/tanager.social/tanager/internal/trust"
)

// Store implements trust.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Ensure Store implements the interface at compile time.
var _ trust.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id           TEXT PRIMARY KEY,
	handle            TEXT NOT NULL DEFAULT '',
	suspended         INTEGER NOT NULL DEFAULT 0,
	suspension_reason TEXT NOT NULL DEFAULT '',
	suspended_until   TEXT,
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS role_assignments (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	role_type  TEXT NOT NULL,
	is_active  INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_role_assignments_lookup
	ON role_assignments (user_id, role_type, is_active);

CREATE TABLE IF NOT EXISTS moderation_actions (
	id                TEXT PRIMARY KEY,
	moderator_id      TEXT NOT NULL,
	target_user_id    TEXT NOT NULL,
	action_type       TEXT NOT NULL,
	target_type       TEXT NOT NULL,
	target_id         TEXT NOT NULL,
	reason            TEXT NOT NULL,
	duration_days     INTEGER,
	expires_at        TEXT,
	internal_notes    TEXT NOT NULL DEFAULT '',
	notification_sent INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_moderation_actions_target
	ON moderation_actions (target_user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS user_restrictions (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	restriction_type  TEXT NOT NULL,
	expires_at        TEXT,
	is_active         INTEGER NOT NULL DEFAULT 1,
	reason            TEXT NOT NULL,
	applied_by        TEXT NOT NULL,
	related_action_id TEXT NOT NULL REFERENCES moderation_actions(id),
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_user_restrictions_one_active
	ON user_restrictions (user_id, restriction_type) WHERE is_active = 1;

CREATE TABLE IF NOT EXISTS moderation_reports (
	id          TEXT PRIMARY KEY,
	reporter_id TEXT NOT NULL,
	report_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	reason      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_moderation_reports_dup
	ON moderation_reports (reporter_id, report_type, target_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_moderation_reports_reporter
	ON moderation_reports (reporter_id, created_at DESC);

CREATE TABLE IF NOT EXISTS notifications (
	id                      TEXT PRIMARY KEY,
	recipient_id            TEXT NOT NULL,
	notif_type              TEXT NOT NULL,
	body                    TEXT NOT NULL DEFAULT '',
	action_id               TEXT NOT NULL DEFAULT '',
	related_notification_id TEXT,
	created_at              TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_action ON notifications (action_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	action_type TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	actor_id    TEXT NOT NULL,
	payload     TEXT NOT NULL DEFAULT '{}',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_time ON audit_log (created_at DESC);

CREATE TABLE IF NOT EXISTS content_items (
	id           TEXT NOT NULL,
	content_type TEXT NOT NULL,
	owner_id     TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (content_type, id)
);
`

// Open creates or opens the SQLite database at the given path, applies the
// schema, and returns the store. The connection is instrumented with
// otelsql; write transactions start in immediate mode.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := "file:" + path +
		"?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"

	db, err := otelsql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for otelsql stats registration.
func (s *Store) DB() *sql.DB {
	return s.db
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func fmtNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation recognizes SQLite unique-constraint errors on the
// given index or column prefix.
func isUniqueViolation(err error, name string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), name)
}
