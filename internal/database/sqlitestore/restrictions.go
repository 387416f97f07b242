package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tangled.org/tanager.social/tanager/internal/trust"
)

const restrictionColumns = `id, user_id, restriction_type, expires_at, is_active,
	reason, applied_by, related_action_id, created_at, updated_at`

func scanRestriction(row interface{ Scan(...any) error }) (*trust.UserRestriction, error) {
	var r trust.UserRestriction
	var expiresAt sql.NullString
	var isActive int
	var createdAt, updatedAt string
	err := row.Scan(&r.ID, &r.UserID, (*string)(&r.RestrictionType), &expiresAt, &isActive,
		&r.Reason, &r.AppliedBy, &r.RelatedActionID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.ExpiresAt = parseNullTime(expiresAt)
	r.IsActive = isActive == 1
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// ActiveRestriction returns the active restriction of the given type for a
// user, or nil when there is none. The partial unique index guarantees at
// most one row matches.
func (s *Store) ActiveRestriction(ctx context.Context, userID string, rtype trust.RestrictionType) (*trust.UserRestriction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+restrictionColumns+` FROM user_restrictions
		WHERE user_id = ? AND restriction_type = ? AND is_active = 1
	`, userID, string(rtype))
	r, err := scanRestriction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active restriction: %w", err)
	}
	return r, nil
}

// SupersedeRestriction deactivates any existing active restriction for the
// row's (user, type) pair, then inserts the new active row, both inside
// one transaction. The deactivate-then-insert ordering is what upholds the
// one-active-restriction invariant under concurrent re-suspension.
func (s *Store) SupersedeRestriction(ctx context.Context, r trust.UserRestriction) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return supersedeRestrictionTx(ctx, tx, r)
	})
}

func supersedeRestrictionTx(ctx context.Context, tx *sql.Tx, r trust.UserRestriction) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE user_restrictions SET is_active = 0, updated_at = ?
		WHERE user_id = ? AND restriction_type = ? AND is_active = 1
	`, fmtTime(r.UpdatedAt), r.UserID, string(r.RestrictionType))
	if err != nil {
		return fmt.Errorf("deactivate prior restriction: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_restrictions
			(`+restrictionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, string(r.RestrictionType), fmtNullTime(r.ExpiresAt), boolToInt(r.IsActive),
		r.Reason, r.AppliedBy, r.RelatedActionID, fmtTime(r.CreatedAt), fmtTime(r.UpdatedAt))
	if isUniqueViolation(err, "user_restrictions") {
		return &trust.ConsistencyError{
			Message: "second active restriction for user " + r.UserID + " type " + string(r.RestrictionType),
		}
	}
	if err != nil {
		return fmt.Errorf("insert restriction: %w", err)
	}
	return nil
}

// deactivateRestrictionTx deactivates the active restriction for a (user,
// type) pair. Returns false when no active row existed.
func deactivateRestrictionTx(ctx context.Context, tx *sql.Tx, userID string, rtype trust.RestrictionType, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE user_restrictions SET is_active = 0, updated_at = ?
		WHERE user_id = ? AND restriction_type = ? AND is_active = 1
	`, fmtTime(now), userID, string(rtype))
	if err != nil {
		return false, fmt.Errorf("deactivate restriction: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListRestrictionsForUser returns all restriction rows for a user, newest
// first, including superseded history.
func (s *Store) ListRestrictionsForUser(ctx context.Context, userID string) ([]trust.UserRestriction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+restrictionColumns+` FROM user_restrictions
		WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list restrictions: %w", err)
	}
	defer rows.Close()

	var out []trust.UserRestriction
	for rows.Next() {
		r, err := scanRestriction(rows)
		if err != nil {
			continue
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CountActiveRestrictions counts currently active restriction rows.
func (s *Store) CountActiveRestrictions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_restrictions WHERE is_active = 1
	`).Scan(&count)
	return count, err
}
