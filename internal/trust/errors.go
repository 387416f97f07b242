package trust

import "errors"

// Sentinel errors for report submission throttles. Handlers map these to
// their own status codes; they are never retried by the engine.
var (
	ErrDuplicateReport = errors.New("duplicate report inside the detection window")
	ErrReportRateLimit = errors.New("report rate limit exceeded")
	ErrSelfReport      = errors.New("cannot report your own content")
)

// AuthorizationError means the actor lacks the required role for an
// operation, or the target is protected (e.g. an active admin). It is
// surfaced to the caller and never partially applied.
type AuthorizationError struct {
	ActorID   string
	Operation string
	Message   string
}

func (e *AuthorizationError) Error() string {
	return "not authorized to " + e.Operation + ": " + e.Message
}

// ValidationError means the request was malformed before any mutation was
// attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// NotFoundError means the target entity does not exist. Distinguished from
// AuthorizationError so callers can give precise feedback.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}

// ConsistencyError is the defensive should-never-happen class: an invariant
// violation detected mid-operation (e.g. a second active restriction for
// the same user and type). The whole transaction aborts; no repair is
// attempted.
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string {
	return "consistency violation: " + e.Message
}
