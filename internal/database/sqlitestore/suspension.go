package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tangled.org/tanager.social/tanager/internal/trust"
)

// CreateProfile inserts an account row. Account creation belongs to the
// platform; the store carries it for bootstrap and tests.
func (s *Store) CreateProfile(ctx context.Context, userID, handle string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, handle, created_at) VALUES (?, ?, ?)
	`, userID, handle, fmtTime(createdAt))
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// ProfileExists reports whether an account row exists for the user.
func (s *Store) ProfileExists(ctx context.Context, userID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM profiles WHERE user_id = ?
	`, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query profile: %w", err)
	}
	return exists == 1, nil
}

func markProfileSuspendedTx(ctx context.Context, tx *sql.Tx, userID, reason string, until *time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE profiles SET suspended = 1, suspension_reason = ?, suspended_until = ?
		WHERE user_id = ?
	`, reason, fmtNullTime(until), userID)
	if err != nil {
		return fmt.Errorf("mark profile suspended: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &trust.NotFoundError{Kind: "user", ID: userID}
	}
	return nil
}

func clearProfileSuspensionTx(ctx context.Context, tx *sql.Tx, userID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE profiles SET suspended = 0, suspension_reason = '', suspended_until = NULL
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return fmt.Errorf("clear profile suspension: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &trust.NotFoundError{Kind: "user", ID: userID}
	}
	return nil
}

// ApplySuspension commits one suspension as a single transaction: account
// mark, ledger insert or extend, restriction supersede, and the optional
// audit entry. Any failure aborts all of them.
func (s *Store) ApplySuspension(ctx context.Context, rec trust.SuspensionRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := markProfileSuspendedTx(ctx, tx, rec.Restriction.UserID, rec.Restriction.Reason, rec.Restriction.ExpiresAt); err != nil {
			return err
		}

		if rec.ExtendExisting {
			if err := extendActionTx(ctx, tx, rec.Action.ID, rec.Action.DurationDays, rec.Action.ExpiresAt); err != nil {
				return err
			}
		} else {
			if err := createActionTx(ctx, tx, rec.Action); err != nil {
				return err
			}
		}

		if err := supersedeRestrictionTx(ctx, tx, rec.Restriction); err != nil {
			return err
		}

		if rec.Audit != nil {
			if err := logAuditTx(ctx, tx, *rec.Audit); err != nil {
				return err
			}
		}
		return nil
	})
}

// LiftSuspension commits one reversal as a single transaction: restriction
// deactivation, account unmark, ledger insert, optional audit entry.
func (s *Store) LiftSuspension(ctx context.Context, rec trust.LiftRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := deactivateRestrictionTx(ctx, tx, rec.UserID, rec.RestrictionType, rec.Action.CreatedAt)
		if err != nil {
			return err
		}
		if !ok {
			return &trust.NotFoundError{Kind: "active restriction", ID: rec.UserID}
		}

		if err := clearProfileSuspensionTx(ctx, tx, rec.UserID); err != nil {
			return err
		}

		if err := createActionTx(ctx, tx, rec.Action); err != nil {
			return err
		}

		if rec.Audit != nil {
			if err := logAuditTx(ctx, tx, *rec.Audit); err != nil {
				return err
			}
		}
		return nil
	})
}
