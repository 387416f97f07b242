package trust

import "context"

// Policy evaluates per-resource access rules. All checks are synchronous
// reads against the role registry and complete before any mutation begins.
type Policy struct {
	roles RoleRegistry
}

// NewPolicy creates a Policy backed by the given role registry.
func NewPolicy(roles RoleRegistry) *Policy {
	return &Policy{roles: roles}
}

// AuthorizeSuspension checks that the actor may suspend the target.
// Permanent suspensions are admin-only; temporary ones allow moderators.
// No actor, regardless of role, may suspend an active admin; the guard
// reads the registry for the target, not the actor.
// Returns whether the actor is an admin, which gates the audit-log write.
func (p *Policy) AuthorizeSuspension(ctx context.Context, actorID, targetID string, permanent bool) (actorIsAdmin bool, err error) {
	actorIsAdmin, err = p.roles.IsAdmin(ctx, actorID)
	if err != nil {
		return false, err
	}

	if permanent {
		if !actorIsAdmin {
			return false, &AuthorizationError{
				ActorID:   actorID,
				Operation: "suspend user permanently",
				Message:   "permanent suspension requires an active admin role",
			}
		}
	} else if !actorIsAdmin {
		isMod, err := p.roles.IsModerator(ctx, actorID)
		if err != nil {
			return false, err
		}
		if !isMod {
			return false, &AuthorizationError{
				ActorID:   actorID,
				Operation: "suspend user",
				Message:   "suspension requires an active moderator or admin role",
			}
		}
	}

	targetIsAdmin, err := p.roles.IsAdmin(ctx, targetID)
	if err != nil {
		return false, err
	}
	if targetIsAdmin {
		return false, &AuthorizationError{
			ActorID:   actorID,
			Operation: "suspend user",
			Message:   "target holds an active admin role",
		}
	}

	return actorIsAdmin, nil
}

// AuthorizeContentDeletion checks that the actor may delete content owned
// by ownerID: active moderator or admin, or the content owner.
func (p *Policy) AuthorizeContentDeletion(ctx context.Context, actorID, ownerID string) error {
	if actorID == ownerID {
		return nil
	}
	isMod, err := p.roles.IsModerator(ctx, actorID)
	if err != nil {
		return err
	}
	if !isMod {
		return &AuthorizationError{
			ActorID:   actorID,
			Operation: "delete content",
			Message:   "requires an active moderator or admin role, or content ownership",
		}
	}
	return nil
}

// AuthorizeAuditView restricts the sensitive audit trail and cross-user
// activity summaries to admins. Operational logs are not gated here.
func (p *Policy) AuthorizeAuditView(ctx context.Context, actorID string) error {
	isAdmin, err := p.roles.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return &AuthorizationError{
			ActorID:   actorID,
			Operation: "view audit log",
			Message:   "requires an active admin role",
		}
	}
	return nil
}

// AuthorizeRestrictionView permits admins and the subject themselves to
// read a user's restriction state.
func (p *Policy) AuthorizeRestrictionView(ctx context.Context, actorID, subjectID string) error {
	if actorID == subjectID {
		return nil
	}
	isAdmin, err := p.roles.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return &AuthorizationError{
			ActorID:   actorID,
			Operation: "view restrictions",
			Message:   "requires an active admin role or self access",
		}
	}
	return nil
}
