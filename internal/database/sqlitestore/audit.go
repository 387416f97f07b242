package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tangled.org/tanager.social/tanager/internal/trust"
)

// LogAudit appends an entry to the sensitive audit trail.
func (s *Store) LogAudit(ctx context.Context, e trust.AuditEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return logAuditTx(ctx, tx, e)
	})
}

func logAuditTx(ctx context.Context, tx *sql.Tx, e trust.AuditEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_log (id, action_type, target_type, target_id, actor_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.ActionType), string(e.TargetType), e.TargetID, e.ActorID,
		string(payload), fmtTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}

// ListAuditLog returns the most recent audit entries, newest first.
func (s *Store) ListAuditLog(ctx context.Context, limit int) ([]trust.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_type, target_type, target_id, actor_id, payload, created_at
		FROM audit_log ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	defer rows.Close()

	var entries []trust.AuditEntry
	for rows.Next() {
		var e trust.AuditEntry
		var payload, createdAt string
		if err := rows.Scan(&e.ID, (*string)(&e.ActionType), (*string)(&e.TargetType),
			&e.TargetID, &e.ActorID, &payload, &createdAt); err != nil {
			continue
		}
		_ = json.Unmarshal([]byte(payload), &e.Payload)
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
