package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tangled.org/tanager.social/tanager/internal/trust"
)

// CreateReport persists an abuse report. Intentionally no uniqueness
// constraint over (reporter, type, target): the duplicate guard is a
// best-effort read-side throttle and tolerates the submission race.
func (s *Store) CreateReport(ctx context.Context, r trust.Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_reports (id, reporter_id, report_type, target_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.ReporterID, r.ReportType, r.TargetID, r.Reason, fmtTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// HasRecentReport checks for a matching report at or after since. The
// composite index makes the most recent matching row decisive without
// scanning older report volume.
func (s *Store) HasRecentReport(ctx context.Context, reporterID, reportType, targetID string, since time.Time) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM moderation_reports
		WHERE reporter_id = ? AND report_type = ? AND target_id = ? AND created_at >= ?
		ORDER BY created_at DESC LIMIT 1
	`, reporterID, reportType, targetID, fmtTime(since)).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query recent report: %w", err)
	}
	return exists == 1, nil
}

// CountReportsFromUserSince counts reports a reporter submitted at or
// after since. Used by the submission rate limit.
func (s *Store) CountReportsFromUserSince(ctx context.Context, reporterID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM moderation_reports WHERE reporter_id = ? AND created_at >= ?
	`, reporterID, fmtTime(since)).Scan(&count)
	return count, err
}

// CountReportsSince counts all reports created at or after since.
func (s *Store) CountReportsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM moderation_reports WHERE created_at >= ?
	`, fmtTime(since)).Scan(&count)
	return count, err
}
