package trust

import (
	"context"
	"time"
)

// RoleRegistry resolves whether a principal currently holds a moderation
// role. Reads observe committed state at call time; there is no caching
// across a single authorization decision.
type RoleRegistry interface {
	// IsAdmin reports whether the user holds an active admin assignment.
	IsAdmin(ctx context.Context, userID string) (bool, error)

	// IsModerator reports whether the user holds an active moderator or
	// admin assignment (admins have all moderator capabilities).
	IsModerator(ctx context.Context, userID string) (bool, error)
}

// SuspensionRecord is the full multi-row write of one suspension, executed
// by the store as a single transaction.
type SuspensionRecord struct {
	// Action is inserted, or, when ExtendExisting is set, its expiry
	// fields are updated in place (link mode).
	Action         ModerationAction
	ExtendExisting bool

	// Restriction supersedes any active restriction of the same type for
	// the same user.
	Restriction UserRestriction

	// Audit is written inside the same transaction when non-nil. Only
	// admin actors carry an entry; moderators do not get audit-log write
	// access.
	Audit *AuditEntry
}

// LiftRecord is the transactional write of a suspension reversal.
type LiftRecord struct {
	UserID          string
	RestrictionType RestrictionType
	Action          ModerationAction
	Audit           *AuditEntry
}

// Store defines the persistence interface for the moderation engine.
// Implementations must be safe for concurrent use, and the composite
// methods (ApplySuspension, LiftSuspension, SupersedeRestriction) must be
// atomic: any failure aborts every row write they describe.
type Store interface {
	RoleRegistry

	// Profiles
	ProfileExists(ctx context.Context, userID string) (bool, error)

	// Restrictions
	ActiveRestriction(ctx context.Context, userID string, rtype RestrictionType) (*UserRestriction, error)
	// SupersedeRestriction deactivates any active restriction for the
	// row's (user, type) pair and inserts the new active row, in one
	// transaction. Call sites never hand-sequence the two steps.
	SupersedeRestriction(ctx context.Context, r UserRestriction) error
	ListRestrictionsForUser(ctx context.Context, userID string) ([]UserRestriction, error)
	CountActiveRestrictions(ctx context.Context) (int, error)

	// Moderation action ledger
	CreateAction(ctx context.Context, a ModerationAction) error
	GetAction(ctx context.Context, id string) (*ModerationAction, error)
	ListActionsForUser(ctx context.Context, userID string, limit int) ([]ModerationAction, error)
	MarkNotificationSent(ctx context.Context, actionID string) error
	CountActionsSince(ctx context.Context, since time.Time) (int, error)

	// Suspension workflow. Both run the profile mark, ledger write,
	// restriction supersede/deactivate and optional audit entry as one
	// atomic unit.
	ApplySuspension(ctx context.Context, rec SuspensionRecord) error
	LiftSuspension(ctx context.Context, rec LiftRecord) error

	// Reports
	CreateReport(ctx context.Context, r Report) error
	// HasRecentReport reports whether the reporter already reported the
	// same target with the same type at or after since. The most recent
	// matching row decides; the lookup must stay bounded as report volume
	// grows.
	HasRecentReport(ctx context.Context, reporterID, reportType, targetID string, since time.Time) (bool, error)
	CountReportsFromUserSince(ctx context.Context, reporterID string, since time.Time) (int, error)
	CountReportsSince(ctx context.Context, since time.Time) (int, error)

	// Notifications (linkage only; delivery is a collaborator concern)
	CreateNotification(ctx context.Context, n Notification) error
	GetNotification(ctx context.Context, id string) (*Notification, error)
	NotificationForAction(ctx context.Context, actionID string) (*Notification, error)
	// LinkReversal writes related_notification_id on the reversal row.
	// Write-once: fails if the reversal already carries a link.
	LinkReversal(ctx context.Context, reversalID, originalID string) error

	// Audit log
	LogAudit(ctx context.Context, e AuditEntry) error
	ListAuditLog(ctx context.Context, limit int) ([]AuditEntry, error)
}

// ContentStore is the content collaborator: the engine resolves ownership
// through it and issues deletes, but never stores content itself.
type ContentStore interface {
	// OwnerOf returns the owning user id of a piece of content.
	OwnerOf(ctx context.Context, contentType TargetType, contentID string) (string, error)
	Delete(ctx context.Context, contentType TargetType, contentID string) error
}
