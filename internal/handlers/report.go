package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tangled.org/tanager.social/tanager/internal/metrics"
	"tangled.org/tanager.social/tanager/internal/trust"
)

// ReportRequest represents the JSON request for submitting a report
type ReportRequest struct {
	ReportType string `json:"report_type"`
	TargetID   string `json:"target_id"`
	Reason     string `json:"reason"`
}

// ReportResponse represents the JSON response from report submission
type ReportResponse struct {
	ID      string `json:"id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleSubmitReport handles POST /api/reports.
// Requires authentication, validates input, checks rate limits and
// duplicates, and persists the report.
func (h *Handler) HandleSubmitReport(w http.ResponseWriter, r *http.Request) {
	reporterID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	report, err := h.svc.SubmitReport(r.Context(), reporterID, req.ReportType, req.TargetID, req.Reason)
	switch {
	case errors.Is(err, trust.ErrDuplicateReport):
		metrics.DuplicateReportsTotal.Inc()
		writeError(w, "You have already reported this content", http.StatusConflict)
		return
	case errors.Is(err, trust.ErrReportRateLimit):
		writeError(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		return
	case errors.Is(err, trust.ErrSelfReport):
		writeError(w, "You cannot report your own content", http.StatusBadRequest)
		return
	case err != nil:
		writeDomainError(w, "submit_report", err)
		return
	}

	metrics.ReportsTotal.Inc()
	writeJSON(w, http.StatusOK, ReportResponse{
		ID:      report.ID,
		Status:  "received",
		Message: "Thank you for your report. It will be reviewed by a moderator.",
	})
}

// duplicateCheckResponse is the JSON response for duplicate lookups.
type duplicateCheckResponse struct {
	Duplicate bool `json:"duplicate"`
}

// HandleDuplicateCheck handles GET /api/reports/duplicate-check.
// Pure read; the submission path performs its own check, so two
// concurrent submissions can still both pass.
func (h *Handler) HandleDuplicateCheck(w http.ResponseWriter, r *http.Request) {
	reporterID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	reportType := r.URL.Query().Get("report_type")
	targetID := r.URL.Query().Get("target_id")
	if reportType == "" || targetID == "" {
		writeError(w, "report_type and target_id are required", http.StatusBadRequest)
		return
	}

	dup, err := h.svc.CheckDuplicateReport(r.Context(), reporterID, reportType, targetID)
	if err != nil {
		writeDomainError(w, "check_duplicate_report", err)
		return
	}

	writeJSON(w, http.StatusOK, duplicateCheckResponse{Duplicate: dup})
}
