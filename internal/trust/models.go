// Package trust implements the trust & moderation engine: role-gated
// suspension workflows, the moderation action ledger, duplicate report
// detection, and notification reversal linkage.
package trust

import "time"

// RoleType is a moderation capability tier granted to a principal.
type RoleType string

const (
	RoleModerator RoleType = "moderator"
	RoleAdmin     RoleType = "admin"
)

// RestrictionType identifies a standing limitation on a user account.
type RestrictionType string

const (
	RestrictionSuspended RestrictionType = "suspended"
)

// TargetType identifies what kind of entity a moderation action targets.
type TargetType string

const (
	TargetUser    TargetType = "user"
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
	TargetTrack   TargetType = "track"
)

// ContentTargetTypes are the target types moderators may delete.
var ContentTargetTypes = map[TargetType]bool{
	TargetPost:    true,
	TargetComment: true,
	TargetTrack:   true,
}

// ActionType identifies a kind of moderation decision.
type ActionType string

const (
	ActionUserSuspended    ActionType = "user_suspended"
	ActionSuspensionLifted ActionType = "suspension_lifted"
	ActionContentRemoved   ActionType = "content_removed"
)

// NotificationType identifies a kind of notification.
type NotificationType string

const (
	NotificationLike       NotificationType = "like"
	NotificationFollow     NotificationType = "follow"
	NotificationComment    NotificationType = "comment"
	NotificationPost       NotificationType = "post"
	NotificationMention    NotificationType = "mention"
	NotificationSystem     NotificationType = "system"
	NotificationModeration NotificationType = "moderation"
)

// Validation and throttle bounds.
const (
	// MinSuspensionDays and MaxSuspensionDays bound temporary suspensions.
	MinSuspensionDays = 1
	MaxSuspensionDays = 365

	// DuplicateReportWindow is the trailing window inside which a repeat
	// report from the same reporter against the same target is rejected.
	DuplicateReportWindow = 24 * time.Hour

	// ReportRateLimitPerHour is the maximum reports a user can submit per hour.
	ReportRateLimitPerHour = 10

	// MaxReportReasonLength is the maximum length of a report reason.
	MaxReportReasonLength = 500
)

// RoleAssignment is a grant of a moderation role to a principal.
// Assignments are administered outside this engine; the engine only reads
// them. Historical rows stay around with IsActive = false.
type RoleAssignment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RoleType  RoleType  `json:"role_type"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRestriction is a standing limitation on a user account. At most one
// restriction per (user, type) is active at any instant; a new restriction
// supersedes the prior one rather than stacking on it.
type UserRestriction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	RestrictionType RestrictionType `json:"restriction_type"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"` // nil = permanent
	IsActive        bool            `json:"is_active"`
	Reason          string          `json:"reason"`
	AppliedBy       string          `json:"applied_by"`
	RelatedActionID string          `json:"related_action_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// InEffect reports whether the restriction is active and unexpired at the
// given instant. Expired rows are not swept by a background task; reads
// compute effective state instead.
func (r *UserRestriction) InEffect(now time.Time) bool {
	if r == nil || !r.IsActive {
		return false
	}
	if r.ExpiresAt == nil {
		return true
	}
	return now.Before(*r.ExpiresAt)
}

// ModerationAction is one entry in the append-mostly action ledger. Its
// identity, moderator and target are immutable after creation; only the
// expiry fields may be updated when an existing action is extended.
type ModerationAction struct {
	ID               string     `json:"id"`
	ModeratorID      string     `json:"moderator_id"`
	TargetUserID     string     `json:"target_user_id"`
	ActionType       ActionType `json:"action_type"`
	TargetType       TargetType `json:"target_type"`
	TargetID         string     `json:"target_id"`
	Reason           string     `json:"reason"`
	DurationDays     *int       `json:"duration_days,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	InternalNotes    string     `json:"internal_notes,omitempty"`
	NotificationSent bool       `json:"notification_sent"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Notification is a user-facing notification row. The engine only writes
// the RelatedNotificationID linkage; delivery belongs to a collaborator.
type Notification struct {
	ID                    string           `json:"id"`
	RecipientID           string           `json:"recipient_id"`
	Type                  NotificationType `json:"type"`
	Body                  string           `json:"body"`
	ActionID              string           `json:"action_id,omitempty"`
	RelatedNotificationID string           `json:"related_notification_id,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
}

// Report is an abuse report submitted by a user against some target.
type Report struct {
	ID         string    `json:"id"`
	ReporterID string    `json:"reporter_id"`
	ReportType string    `json:"report_type"`
	TargetID   string    `json:"target_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditEntry is a logged sensitive moderation action. Only admin actors
// produce audit entries in this engine.
type AuditEntry struct {
	ID         string            `json:"id"`
	ActionType ActionType        `json:"action_type"`
	TargetType TargetType        `json:"target_type"`
	TargetID   string            `json:"target_id"`
	ActorID    string            `json:"actor_id"`
	Payload    map[string]string `json:"payload,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// SuspensionRequest carries the caller-supplied parameters of a suspension.
type SuspensionRequest struct {
	TargetUserID string `json:"target_user_id"`
	Reason       string `json:"reason"`
	// DurationDays selects a temporary suspension; nil means permanent.
	DurationDays *int `json:"duration_days,omitempty"`
	// ExistingActionID links the suspension to an already-recorded action
	// instead of creating a duplicate ledger entry.
	ExistingActionID string `json:"existing_action_id,omitempty"`
}

// Permanent reports whether the request asks for a permanent suspension.
func (r SuspensionRequest) Permanent() bool {
	return r.DurationDays == nil
}
