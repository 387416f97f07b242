// Package handlers exposes the engine operations over a thin JSON surface.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"tangled.org/tanager.social/tanager/internal/auth"
	"tangled.org/tanager.social/tanager/internal/metrics"
	"tangled.org/tanager.social/tanager/internal/trust"
)

// Config holds handler configuration options
type Config struct {
	// AuditLogLimit caps how many audit entries one request returns.
	AuditLogLimit int
}

// Handler contains all HTTP handler methods and their dependencies.
// Dependencies are injected via the constructor for better testability.
type Handler struct {
	svc    *trust.Service
	store  trust.Store
	config Config
}

// NewHandler creates a new Handler with all required dependencies.
func NewHandler(svc *trust.Service, store trust.Store, config Config) *Handler {
	if config.AuditLogLimit <= 0 {
		config.AuditLogLimit = 100
	}
	return &Handler{
		svc:    svc,
		store:  store,
		config: config,
	}
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}

// requirePrincipal extracts the authenticated principal, writing a 401
// when the request carries none.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal, err := auth.GetPrincipal(r.Context())
	if err != nil {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return "", false
	}
	return principal, true
}

// writeDomainError maps the engine error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, operation string, err error) {
	var authzErr *trust.AuthorizationError
	var valErr *trust.ValidationError
	var nfErr *trust.NotFoundError
	var consErr *trust.ConsistencyError

	switch {
	case errors.As(err, &authzErr):
		metrics.AuthzDenialsTotal.WithLabelValues(operation).Inc()
		log.Warn().Str("operation", operation).Str("actor", authzErr.ActorID).Msg("Denied: insufficient permissions")
		writeError(w, authzErr.Error(), http.StatusForbidden)
	case errors.As(err, &valErr):
		writeError(w, valErr.Error(), http.StatusBadRequest)
	case errors.As(err, &nfErr):
		writeError(w, nfErr.Error(), http.StatusNotFound)
	case errors.As(err, &consErr):
		log.Error().Err(err).Str("operation", operation).Msg("Consistency violation, transaction aborted")
		writeError(w, "Internal consistency error", http.StatusInternalServerError)
	default:
		log.Error().Err(err).Str("operation", operation).Msg("Operation failed")
		writeError(w, "Internal error", http.StatusInternalServerError)
	}
}
