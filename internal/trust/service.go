package trust

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service composes the role registry, restriction store, action ledger and
// audit log into the engine's operations. All mutating operations either
// complete transactionally or fail atomically; there is no retry logic.
type Service struct {
	store   Store
	content ContentStore
	policy  *Policy

	// now is injectable for deterministic expiry and window tests.
	now func() time.Time
}

// NewService creates the engine service. content may be nil when the
// deployment has no content collaborator wired; content deletion then
// fails with NotFoundError.
func NewService(store Store, content ContentStore) *Service {
	return &Service{
		store:   store,
		content: content,
		policy:  NewPolicy(store),
		now:     time.Now,
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Policy exposes the authorization policy layer for handlers that gate
// reads themselves.
func (s *Service) Policy() *Policy {
	return s.policy
}

// IsAdmin reports whether the user holds an active admin role.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return s.store.IsAdmin(ctx, userID)
}

// IsModerator reports whether the user holds an active moderator or admin role.
func (s *Service) IsModerator(ctx context.Context, userID string) (bool, error) {
	return s.store.IsModerator(ctx, userID)
}

// ApplySuspension runs the full suspension workflow: authorize, validate,
// mark the account, resolve the ledger entry, supersede any active
// restriction, and write the admin audit entry, all as one atomic unit. Re-suspending an already-suspended user supersedes the prior
// restriction rather than stacking a second one, so retries are safe.
func (s *Service) ApplySuspension(ctx context.Context, actorID string, req SuspensionRequest) (*ModerationAction, error) {
	actorIsAdmin, err := s.policy.AuthorizeSuspension(ctx, actorID, req.TargetUserID, req.Permanent())
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "must not be empty"}
	}
	if req.DurationDays != nil {
		d := *req.DurationDays
		if d < MinSuspensionDays || d > MaxSuspensionDays {
			return nil, &ValidationError{
				Field:   "duration_days",
				Message: fmt.Sprintf("must be between %d and %d", MinSuspensionDays, MaxSuspensionDays),
			}
		}
	}

	exists, err := s.store.ProfileExists(ctx, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Kind: "user", ID: req.TargetUserID}
	}

	now := s.now().UTC()
	var expiresAt *time.Time
	if req.DurationDays != nil {
		t := now.Add(time.Duration(*req.DurationDays) * 24 * time.Hour)
		expiresAt = &t
	}

	var action ModerationAction
	extend := false
	if req.ExistingActionID != "" {
		// Link mode: extend the existing ledger entry instead of
		// duplicating it. Identity and parties stay immutable.
		existing, err := s.store.GetAction(ctx, req.ExistingActionID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, &NotFoundError{Kind: "moderation action", ID: req.ExistingActionID}
		}
		action = *existing
		action.DurationDays = req.DurationDays
		action.ExpiresAt = expiresAt
		extend = true
	} else {
		action = ModerationAction{
			ID:           uuid.NewString(),
			ModeratorID:  actorID,
			TargetUserID: req.TargetUserID,
			ActionType:   ActionUserSuspended,
			TargetType:   TargetUser,
			TargetID:     req.TargetUserID,
			Reason:       reason,
			DurationDays: req.DurationDays,
			ExpiresAt:    expiresAt,
			CreatedAt:    now,
		}
	}

	rec := SuspensionRecord{
		Action:         action,
		ExtendExisting: extend,
		Restriction: UserRestriction{
			ID:              uuid.NewString(),
			UserID:          req.TargetUserID,
			RestrictionType: RestrictionSuspended,
			ExpiresAt:       expiresAt,
			IsActive:        true,
			Reason:          reason,
			AppliedBy:       actorID,
			RelatedActionID: action.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
	if actorIsAdmin {
		rec.Audit = s.suspensionAuditEntry(actorID, action, reason, req.DurationDays, expiresAt, now)
	}

	if err := s.store.ApplySuspension(ctx, rec); err != nil {
		return nil, err
	}

	log.Info().
		Str("actor", actorID).
		Str("target", req.TargetUserID).
		Str("action_id", action.ID).
		Bool("permanent", req.Permanent()).
		Bool("extended", extend).
		Msg("trust: user suspended")

	// Notification delivery is best-effort and outside the transaction.
	s.notifySuspension(ctx, action, reason, expiresAt, now)

	return &action, nil
}

func (s *Service) suspensionAuditEntry(actorID string, action ModerationAction, reason string, durationDays *int, expiresAt *time.Time, now time.Time) *AuditEntry {
	payload := map[string]string{
		"reason":       reason,
		"action_id":    action.ID,
		"is_permanent": fmt.Sprintf("%t", expiresAt == nil),
	}
	if durationDays != nil {
		payload["duration_days"] = fmt.Sprintf("%d", *durationDays)
	}
	if expiresAt != nil {
		payload["expires_at"] = expiresAt.Format(time.RFC3339Nano)
	}
	return &AuditEntry{
		ID:         uuid.NewString(),
		ActionType: ActionUserSuspended,
		TargetType: TargetUser,
		TargetID:   action.TargetUserID,
		ActorID:    actorID,
		Payload:    payload,
		CreatedAt:  now,
	}
}

// notifySuspension creates the moderation notification for the target and
// marks the ledger entry as notified. Failures are logged, never surfaced:
// the suspension itself has already committed.
func (s *Service) notifySuspension(ctx context.Context, action ModerationAction, reason string, expiresAt *time.Time, now time.Time) {
	body := "Your account has been suspended: " + reason
	if expiresAt != nil {
		body += " (until " + expiresAt.Format(time.RFC3339) + ")"
	}
	n := Notification{
		ID:          uuid.NewString(),
		RecipientID: action.TargetUserID,
		Type:        NotificationModeration,
		Body:        body,
		ActionID:    action.ID,
		CreatedAt:   now,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		log.Error().Err(err).Str("action_id", action.ID).Msg("trust: failed to create suspension notification")
		return
	}
	if err := s.store.MarkNotificationSent(ctx, action.ID); err != nil {
		log.Error().Err(err).Str("action_id", action.ID).Msg("trust: failed to mark notification sent")
	}
}

// LiftSuspension reverses an active suspension: deactivates the
// restriction, clears the account mark, and records a suspension_lifted
// ledger entry, atomically. A reversal notification linked back to the
// original suspension notification is created best-effort afterwards.
func (s *Service) LiftSuspension(ctx context.Context, actorID, targetUserID, reason string) (*ModerationAction, error) {
	isAdmin, err := s.store.IsAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		isMod, err := s.store.IsModerator(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !isMod {
			return nil, &AuthorizationError{
				ActorID:   actorID,
				Operation: "lift suspension",
				Message:   "requires an active moderator or admin role",
			}
		}
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "must not be empty"}
	}

	current, err := s.store.ActiveRestriction(ctx, targetUserID, RestrictionSuspended)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &NotFoundError{Kind: "active suspension", ID: targetUserID}
	}

	now := s.now().UTC()
	action := ModerationAction{
		ID:           uuid.NewString(),
		ModeratorID:  actorID,
		TargetUserID: targetUserID,
		ActionType:   ActionSuspensionLifted,
		TargetType:   TargetUser,
		TargetID:     targetUserID,
		Reason:       reason,
		CreatedAt:    now,
	}

	rec := LiftRecord{
		UserID:          targetUserID,
		RestrictionType: RestrictionSuspended,
		Action:          action,
	}
	if isAdmin {
		rec.Audit = &AuditEntry{
			ID:         uuid.NewString(),
			ActionType: ActionSuspensionLifted,
			TargetType: TargetUser,
			TargetID:   targetUserID,
			ActorID:    actorID,
			Payload: map[string]string{
				"reason":             reason,
				"action_id":          action.ID,
				"reversed_action_id": current.RelatedActionID,
			},
			CreatedAt: now,
		}
	}

	if err := s.store.LiftSuspension(ctx, rec); err != nil {
		return nil, err
	}

	log.Info().
		Str("actor", actorID).
		Str("target", targetUserID).
		Str("action_id", action.ID).
		Msg("trust: suspension lifted")

	s.notifyReversal(ctx, action, current.RelatedActionID, now)

	return &action, nil
}

// notifyReversal creates the reversal notification and links it to the
// original suspension notification when one exists. Best-effort.
func (s *Service) notifyReversal(ctx context.Context, action ModerationAction, originalActionID string, now time.Time) {
	n := Notification{
		ID:          uuid.NewString(),
		RecipientID: action.TargetUserID,
		Type:        NotificationModeration,
		Body:        "Your suspension has been lifted: " + action.Reason,
		ActionID:    action.ID,
		CreatedAt:   now,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		log.Error().Err(err).Str("action_id", action.ID).Msg("trust: failed to create reversal notification")
		return
	}
	if err := s.store.MarkNotificationSent(ctx, action.ID); err != nil {
		log.Error().Err(err).Str("action_id", action.ID).Msg("trust: failed to mark notification sent")
	}

	original, err := s.store.NotificationForAction(ctx, originalActionID)
	if err != nil || original == nil {
		return
	}
	if err := s.LinkReversalNotification(ctx, n.ID, original.ID); err != nil {
		log.Warn().Err(err).Str("reversal", n.ID).Str("original", original.ID).Msg("trust: failed to link reversal notification")
	}
}

// ActiveRestriction returns the target's restriction of the given type, or
// nil when none is in effect (expired rows count as not in effect).
func (s *Service) ActiveRestriction(ctx context.Context, userID string, rtype RestrictionType) (*UserRestriction, error) {
	r, err := s.store.ActiveRestriction(ctx, userID, rtype)
	if err != nil {
		return nil, err
	}
	if !r.InEffect(s.now()) {
		return nil, nil
	}
	return r, nil
}

// DeleteContent deletes a post, comment or track once the actor is
// authorized by role or ownership. The delete itself is unconditional;
// pairing it with a ledger entry is the caller's responsibility.
func (s *Service) DeleteContent(ctx context.Context, actorID string, contentType TargetType, contentID string) error {
	if !ContentTargetTypes[contentType] {
		return &ValidationError{Field: "content_type", Message: "must be post, comment or track"}
	}
	if s.content == nil {
		return &NotFoundError{Kind: string(contentType), ID: contentID}
	}

	ownerID, err := s.content.OwnerOf(ctx, contentType, contentID)
	if err != nil {
		return err
	}
	if err := s.policy.AuthorizeContentDeletion(ctx, actorID, ownerID); err != nil {
		return err
	}

	if err := s.content.Delete(ctx, contentType, contentID); err != nil {
		return err
	}

	log.Info().
		Str("actor", actorID).
		Str("content_type", string(contentType)).
		Str("content_id", contentID).
		Msg("trust: content deleted")

	return nil
}

// CheckDuplicateReport reports whether the reporter already reported the
// same target within the trailing 24-hour window. Pure read: a race
// between two concurrent submissions can pass both; this is a best-effort
// throttle, not a uniqueness constraint.
func (s *Service) CheckDuplicateReport(ctx context.Context, reporterID, reportType, targetID string) (bool, error) {
	since := s.now().Add(-DuplicateReportWindow)
	return s.store.HasRecentReport(ctx, reporterID, reportType, targetID, since)
}

// SubmitReport validates, throttles and persists an abuse report.
func (s *Service) SubmitReport(ctx context.Context, reporterID, reportType, targetID, reason string) (*Report, error) {
	if reportType == "" {
		return nil, &ValidationError{Field: "report_type", Message: "must not be empty"}
	}
	if targetID == "" {
		return nil, &ValidationError{Field: "target_id", Message: "must not be empty"}
	}
	if targetID == reporterID {
		return nil, ErrSelfReport
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "No reason provided"
	}
	if len(reason) > MaxReportReasonLength {
		reason = reason[:MaxReportReasonLength]
	}

	now := s.now().UTC()
	recent, err := s.store.CountReportsFromUserSince(ctx, reporterID, now.Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("check report rate limit: %w", err)
	}
	if recent >= ReportRateLimitPerHour {
		return nil, ErrReportRateLimit
	}

	dup, err := s.store.HasRecentReport(ctx, reporterID, reportType, targetID, now.Add(-DuplicateReportWindow))
	if err != nil {
		return nil, fmt.Errorf("check duplicate report: %w", err)
	}
	if dup {
		return nil, ErrDuplicateReport
	}

	report := Report{
		ID:         uuid.NewString(),
		ReporterID: reporterID,
		ReportType: reportType,
		TargetID:   targetID,
		Reason:     reason,
		CreatedAt:  now,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	log.Info().
		Str("report_id", report.ID).
		Str("reporter", reporterID).
		Str("report_type", reportType).
		Str("target", targetID).
		Msg("trust: report created")

	return &report, nil
}

// LinkReversalNotification writes the causal back-reference from a
// reversal notification to the original it reverses. Self-links are
// rejected, as are chains deeper than two: the original must not itself
// carry a related_notification_id.
func (s *Service) LinkReversalNotification(ctx context.Context, reversalID, originalID string) error {
	if reversalID == originalID {
		return &ValidationError{Field: "related_notification_id", Message: "notification cannot reference itself"}
	}

	original, err := s.store.GetNotification(ctx, originalID)
	if err != nil {
		return err
	}
	if original == nil {
		return &NotFoundError{Kind: "notification", ID: originalID}
	}
	if original.RelatedNotificationID != "" {
		return &ValidationError{Field: "related_notification_id", Message: "original notification already references another notification"}
	}

	return s.store.LinkReversal(ctx, reversalID, originalID)
}
