package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"tangled.org/tanager.social/tanager/internal/trust"
)

const notificationColumns = `id, recipient_id, notif_type, body, action_id,
	related_notification_id, created_at`

func scanNotification(row interface{ Scan(...any) error }) (*trust.Notification, error) {
	var n trust.Notification
	var related sql.NullString
	var createdAt string
	err := row.Scan(&n.ID, &n.RecipientID, (*string)(&n.Type), &n.Body, &n.ActionID,
		&related, &createdAt)
	if err != nil {
		return nil, err
	}
	if related.Valid {
		n.RelatedNotificationID = related.String
	}
	n.CreatedAt = parseTime(createdAt)
	return &n, nil
}

// CreateNotification inserts a notification row. Delivery is a
// collaborator concern; the engine only owns the linkage column.
func (s *Store) CreateNotification(ctx context.Context, n trust.Notification) error {
	var related any
	if n.RelatedNotificationID != "" {
		related = n.RelatedNotificationID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.RecipientID, string(n.Type), n.Body, n.ActionID, related, fmtTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// GetNotification returns a notification by id, or nil when absent.
func (s *Store) GetNotification(ctx context.Context, id string) (*trust.Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications WHERE id = ?
	`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// NotificationForAction returns the most recent notification tied to a
// ledger entry, or nil when none exists.
func (s *Store) NotificationForAction(ctx context.Context, actionID string) (*trust.Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE action_id = ? ORDER BY created_at DESC LIMIT 1
	`, actionID)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notification for action: %w", err)
	}
	return n, nil
}

// LinkReversal writes related_notification_id on the reversal row. The
// linkage is write-once: the update only lands while the column is still
// NULL, so a second link attempt reports not found.
func (s *Store) LinkReversal(ctx context.Context, reversalID, originalID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET related_notification_id = ?
		WHERE id = ? AND related_notification_id IS NULL
	`, originalID, reversalID)
	if err != nil {
		return fmt.Errorf("link reversal: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &trust.NotFoundError{Kind: "linkable notification", ID: reversalID}
	}
	return nil
}
