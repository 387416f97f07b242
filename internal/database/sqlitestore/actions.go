package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tangled.org/tanager.social/tanager/internal/trust"
)

const actionColumns = `id, moderator_id, target_user_id, action_type, target_type,
	target_id, reason, duration_days, expires_at, internal_notes, notification_sent, created_at`

func scanAction(row interface{ Scan(...any) error }) (*trust.ModerationAction, error) {
	var a trust.ModerationAction
	var durationDays sql.NullInt64
	var expiresAt sql.NullString
	var notificationSent int
	var createdAt string
	err := row.Scan(&a.ID, &a.ModeratorID, &a.TargetUserID, (*string)(&a.ActionType),
		(*string)(&a.TargetType), &a.TargetID, &a.Reason, &durationDays, &expiresAt,
		&a.InternalNotes, &notificationSent, &createdAt)
	if err != nil {
		return nil, err
	}
	if durationDays.Valid {
		d := int(durationDays.Int64)
		a.DurationDays = &d
	}
	a.ExpiresAt = parseNullTime(expiresAt)
	a.NotificationSent = notificationSent == 1
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

// CreateAction appends a new entry to the moderation action ledger.
func (s *Store) CreateAction(ctx context.Context, a trust.ModerationAction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_actions (`+actionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ModeratorID, a.TargetUserID, string(a.ActionType), string(a.TargetType),
		a.TargetID, a.Reason, nullInt(a.DurationDays), fmtNullTime(a.ExpiresAt),
		a.InternalNotes, boolToInt(a.NotificationSent), fmtTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create action: %w", err)
	}
	return nil
}

func createActionTx(ctx context.Context, tx *sql.Tx, a trust.ModerationAction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO moderation_actions (`+actionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ModeratorID, a.TargetUserID, string(a.ActionType), string(a.TargetType),
		a.TargetID, a.Reason, nullInt(a.DurationDays), fmtNullTime(a.ExpiresAt),
		a.InternalNotes, boolToInt(a.NotificationSent), fmtTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create action: %w", err)
	}
	return nil
}

// extendActionTx updates the expiry fields of an existing ledger entry in
// place. Identity, moderator and target stay immutable.
func extendActionTx(ctx context.Context, tx *sql.Tx, id string, durationDays *int, expiresAt *time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE moderation_actions SET duration_days = ?, expires_at = ? WHERE id = ?
	`, nullInt(durationDays), fmtNullTime(expiresAt), id)
	if err != nil {
		return fmt.Errorf("extend action: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &trust.NotFoundError{Kind: "moderation action", ID: id}
	}
	return nil
}

// GetAction returns a ledger entry by id, or nil when absent.
func (s *Store) GetAction(ctx context.Context, id string) (*trust.ModerationAction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+actionColumns+` FROM moderation_actions WHERE id = ?
	`, id)
	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	return a, nil
}

// ListActionsForUser returns ledger entries targeting a user, newest first.
func (s *Store) ListActionsForUser(ctx context.Context, userID string, limit int) ([]trust.ModerationAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+actionColumns+` FROM moderation_actions
		WHERE target_user_id = ? ORDER BY created_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []trust.ModerationAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			continue
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// MarkNotificationSent flags a ledger entry as having produced its
// notification.
func (s *Store) MarkNotificationSent(ctx context.Context, actionID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE moderation_actions SET notification_sent = 1 WHERE id = ?
	`, actionID)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &trust.NotFoundError{Kind: "moderation action", ID: actionID}
	}
	return nil
}

// CountActionsSince counts ledger entries created at or after since.
func (s *Store) CountActionsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM moderation_actions WHERE created_at >= ?
	`, fmtTime(since)).Scan(&count)
	return count, err
}
