package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"golang.org/x/sync/errgroup"

	"tangled.org/tanager.social/tanager/internal/metrics"
)

// HandleAuditLog handles GET /api/audit-log. The sensitive audit trail is
// admin-only; operational request logs are not served here.
func (h *Handler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.svc.Policy().AuthorizeAuditView(r.Context(), actorID); err != nil {
		writeDomainError(w, "view_audit_log", err)
		return
	}

	limit := h.config.AuditLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	entries, err := h.store.ListAuditLog(r.Context(), limit)
	if err != nil {
		writeDomainError(w, "view_audit_log", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"entries": entries,
	})
}

// HandleUserActions handles GET /api/users/{userID}/actions, the ledger
// history for one user. Cross-user activity summaries are admin-only.
func (h *Handler) HandleUserActions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	userID := r.PathValue("userID")
	if userID == "" {
		writeError(w, "user id is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.Policy().AuthorizeAuditView(r.Context(), actorID); err != nil {
		writeDomainError(w, "view_user_actions", err)
		return
	}

	actions, err := h.store.ListActionsForUser(r.Context(), userID, 100)
	if err != nil {
		writeDomainError(w, "view_user_actions", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"actions": actions,
	})
}

// adminOverview aggregates engine activity for the admin dashboard.
type adminOverview struct {
	ActiveRestrictions int     `json:"active_restrictions"`
	ActionsLast24h     int     `json:"actions_last_24h"`
	ReportsLast24h     int     `json:"reports_last_24h"`
	RestrictionsGauge  float64 `json:"restrictions_gauge"`
}

// HandleAdminOverview handles GET /api/admin/overview. Admin-only.
func (h *Handler) HandleAdminOverview(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	isAdmin, err := h.svc.IsAdmin(r.Context(), actorID)
	if err != nil {
		writeDomainError(w, "admin_overview", err)
		return
	}
	if !isAdmin {
		writeError(w, "Access denied", http.StatusForbidden)
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	var overview adminOverview

	// Fetch all counts in parallel using errgroup for proper error handling
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		n, err := h.store.CountActiveRestrictions(ctx)
		overview.ActiveRestrictions = n
		return err
	})
	g.Go(func() error {
		n, err := h.store.CountActionsSince(ctx, since)
		overview.ActionsLast24h = n
		return err
	})
	g.Go(func() error {
		n, err := h.store.CountReportsSince(ctx, since)
		overview.ReportsLast24h = n
		return err
	})
	if err := g.Wait(); err != nil {
		writeDomainError(w, "admin_overview", err)
		return
	}

	// Read the collector's view from the Prometheus gauge
	overview.RestrictionsGauge = getGaugeValue(metrics.ActiveRestrictionsTotal)

	writeJSON(w, http.StatusOK, overview)
}

// getGaugeValue reads the current value of a prometheus.Gauge.
func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil {
		return m.GetGauge().GetValue()
	}
	return 0
}

// HandleRoleCheck handles GET /api/roles/{userID}, the capability
// queries exposed to collaborators. Available to any authenticated
// principal; role membership is not sensitive.
func (h *Handler) HandleRoleCheck(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePrincipal(w, r); !ok {
		return
	}

	userID := r.PathValue("userID")
	if userID == "" {
		writeError(w, "user id is required", http.StatusBadRequest)
		return
	}

	var isAdmin, isModerator bool
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		isAdmin, err = h.svc.IsAdmin(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		isModerator, err = h.svc.IsModerator(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		writeDomainError(w, "role_check", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      userID,
		"is_admin":     isAdmin,
		"is_moderator": isModerator,
	})
}