package handlers

import (
	"encoding/json"
	"net/http"
)

// linkReversalRequest is the request body for reversal linkage.
type linkReversalRequest struct {
	ReversalID string `json:"reversal_id"`
	OriginalID string `json:"original_id"`
}

// HandleLinkReversal handles POST /api/notifications/link.
// Called by the notification collaborator at reversal-creation time; the
// linkage is write-once and one-directional.
func (h *Handler) HandleLinkReversal(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePrincipal(w, r); !ok {
		return
	}

	var req linkReversalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ReversalID == "" || req.OriginalID == "" {
		writeError(w, "reversal_id and original_id are required", http.StatusBadRequest)
		return
	}

	if err := h.svc.LinkReversalNotification(r.Context(), req.ReversalID, req.OriginalID); err != nil {
		writeDomainError(w, "link_reversal_notification", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}
