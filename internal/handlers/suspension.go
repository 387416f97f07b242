package handlers

import (
	"encoding/json"
	"net/http"

	"tangled.org/tanager.social/tanager/internal/metrics"
	"tangled.org/tanager.social/tanager/internal/tracing"
	"tangled.org/tanager.social/tanager/internal/trust"
)

// suspensionResponse is the JSON response for suspension operations.
type suspensionResponse struct {
	Status string                  `json:"status"`
	Action *trust.ModerationAction `json:"action"`
}

// HandleApplySuspension handles POST /api/suspensions.
func (h *Handler) HandleApplySuspension(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req trust.SuspensionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.TargetUserID == "" {
		writeError(w, "target_user_id is required", http.StatusBadRequest)
		return
	}

	mode := "temporary"
	if req.Permanent() {
		mode = "permanent"
	}

	ctx, span := tracing.OpSpan(r.Context(), "apply_suspension", actorID, req.TargetUserID)
	defer span.End()

	action, err := h.svc.ApplySuspension(ctx, actorID, req)
	if err != nil {
		tracing.EndWithError(span, err)
		metrics.SuspensionsTotal.WithLabelValues(mode, "error").Inc()
		writeDomainError(w, "apply_suspension", err)
		return
	}

	metrics.SuspensionsTotal.WithLabelValues(mode, "ok").Inc()
	writeJSON(w, http.StatusOK, suspensionResponse{Status: "suspended", Action: action})
}

// liftRequest is the request body for lifting a suspension.
type liftRequest struct {
	Reason string `json:"reason"`
}

// HandleLiftSuspension handles DELETE /api/suspensions/{userID}.
func (h *Handler) HandleLiftSuspension(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	targetID := r.PathValue("userID")
	if targetID == "" {
		writeError(w, "user id is required", http.StatusBadRequest)
		return
	}

	var req liftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	ctx, span := tracing.OpSpan(r.Context(), "lift_suspension", actorID, targetID)
	defer span.End()

	action, err := h.svc.LiftSuspension(ctx, actorID, targetID, req.Reason)
	if err != nil {
		tracing.EndWithError(span, err)
		metrics.SuspensionLiftsTotal.WithLabelValues("error").Inc()
		writeDomainError(w, "lift_suspension", err)
		return
	}

	metrics.SuspensionLiftsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, suspensionResponse{Status: "lifted", Action: action})
}

// restrictionResponse is the JSON response for restriction lookups.
type restrictionResponse struct {
	Status      string                 `json:"status"`
	Restriction *trust.UserRestriction `json:"restriction"`
}

// HandleGetRestriction handles GET /api/restrictions/{userID}.
// Admins and the subject themselves may read restriction state.
func (h *Handler) HandleGetRestriction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	subjectID := r.PathValue("userID")
	if subjectID == "" {
		writeError(w, "user id is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.Policy().AuthorizeRestrictionView(r.Context(), actorID, subjectID); err != nil {
		writeDomainError(w, "view_restrictions", err)
		return
	}

	restriction, err := h.svc.ActiveRestriction(r.Context(), subjectID, trust.RestrictionSuspended)
	if err != nil {
		writeDomainError(w, "view_restrictions", err)
		return
	}

	status := "unrestricted"
	if restriction != nil {
		status = "restricted"
	}
	writeJSON(w, http.StatusOK, restrictionResponse{Status: status, Restriction: restriction})
}
