package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"tangled.org/tanager.social/tanager/internal/trust"
)

// hasActiveRole checks for any active assignment of the given role.
// Zero or multiple active rows are both tolerated; the engine only asks
// whether at least one exists.
func (s *Store) hasActiveRole(ctx context.Context, userID string, role trust.RoleType) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM role_assignments
		WHERE user_id = ? AND role_type = ? AND is_active = 1
		LIMIT 1
	`, userID, string(role)).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query role assignment: %w", err)
	}
	return exists == 1, nil
}

// IsAdmin reports whether the user holds an active admin assignment.
func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return s.hasActiveRole(ctx, userID, trust.RoleAdmin)
}

// IsModerator reports whether the user holds an active moderator or admin
// assignment.
func (s *Store) IsModerator(ctx context.Context, userID string) (bool, error) {
	isMod, err := s.hasActiveRole(ctx, userID, trust.RoleModerator)
	if err != nil || isMod {
		return isMod, err
	}
	return s.hasActiveRole(ctx, userID, trust.RoleAdmin)
}

// GrantRole inserts a role assignment. Role administration is external
// tooling; the engine itself only reads assignments.
func (s *Store) GrantRole(ctx context.Context, a trust.RoleAssignment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO role_assignments (id, user_id, role_type, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.UserID, string(a.RoleType), boolToInt(a.IsActive), fmtTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

// RevokeRole deactivates all active assignments of a role for a user.
func (s *Store) RevokeRole(ctx context.Context, userID string, role trust.RoleType) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE role_assignments SET is_active = 0
		WHERE user_id = ? AND role_type = ? AND is_active = 1
	`, userID, string(role))
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}
