package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tangled.org/tanager.social/tanager/internal/metrics"
	"tangled.org/tanager.social/tanager/internal/tracing"
	"tangled.org/tanager.social/tanager/internal/trust"
)

// deleteContentRequest is the request body for content deletion.
type deleteContentRequest struct {
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	Reason      string `json:"reason,omitempty"`
}

// deleteContentResponse is the JSON response for content deletion.
type deleteContentResponse struct {
	Status   string `json:"status"`
	ActionID string `json:"action_id,omitempty"`
}

// HandleDeleteContent handles POST /api/content/delete.
// The delete and the ledger entry are not one transaction: the action is
// recorded best-effort after the delete succeeds, and a recording failure
// is logged rather than surfaced. Known gap carried over from the
// original workflow.
func (h *Handler) HandleDeleteContent(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req deleteContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ContentID == "" {
		writeError(w, "content_id is required", http.StatusBadRequest)
		return
	}
	contentType := trust.TargetType(req.ContentType)

	ctx, span := tracing.OpSpan(r.Context(), "delete_content", actorID, req.ContentID)
	defer span.End()

	if err := h.svc.DeleteContent(ctx, actorID, contentType, req.ContentID); err != nil {
		tracing.EndWithError(span, err)
		writeDomainError(w, "delete_content", err)
		return
	}
	metrics.ContentDeletionsTotal.WithLabelValues(req.ContentType).Inc()

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "Removed by moderator"
	}
	action := trust.ModerationAction{
		ID:          uuid.NewString(),
		ModeratorID: actorID,
		ActionType:  trust.ActionContentRemoved,
		TargetType:  contentType,
		TargetID:    req.ContentID,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.CreateAction(ctx, action); err != nil {
		log.Error().Err(err).
			Str("content_type", req.ContentType).
			Str("content_id", req.ContentID).
			Msg("Failed to record content removal action")
		// Don't fail the request, the delete already happened
		writeJSON(w, http.StatusOK, deleteContentResponse{Status: "deleted"})
		return
	}

	writeJSON(w, http.StatusOK, deleteContentResponse{Status: "deleted", ActionID: action.ID})
}
