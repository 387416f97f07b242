package routing

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"tangled.org/tanager.social/tanager/internal/auth"
	"tangled.org/tanager.social/tanager/internal/handlers"
	"tangled.org/tanager.social/tanager/internal/middleware"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers *handlers.Handler
	Sessions auth.SessionStore
	Logger   zerolog.Logger
}

// SetupRouter creates and configures the HTTP router with all routes and middleware
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	// Suspension workflow
	mux.HandleFunc("POST /api/suspensions", h.HandleApplySuspension)
	mux.HandleFunc("DELETE /api/suspensions/{userID}", h.HandleLiftSuspension)
	mux.HandleFunc("GET /api/restrictions/{userID}", h.HandleGetRestriction)

	// Role capability queries (used by collaborating services)
	mux.HandleFunc("GET /api/roles/{userID}", h.HandleRoleCheck)

	// Report submission and the duplicate guard
	mux.HandleFunc("POST /api/reports", h.HandleSubmitReport)
	mux.HandleFunc("GET /api/reports/duplicate-check", h.HandleDuplicateCheck)

	// Moderator content deletion
	mux.HandleFunc("POST /api/content/delete", h.HandleDeleteContent)

	// Notification reversal linkage
	mux.HandleFunc("POST /api/notifications/link", h.HandleLinkReversal)

	// Admin surfaces
	mux.HandleFunc("GET /api/audit-log", h.HandleAuditLog)
	mux.HandleFunc("GET /api/users/{userID}/actions", h.HandleUserActions)
	mux.HandleFunc("GET /api/admin/overview", h.HandleAdminOverview)

	// Operational endpoints
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Apply middleware in order (outermost first, innermost last)
	var handler http.Handler = mux

	// 1. Resolve the authenticated principal from the bearer token
	handler = auth.Middleware(cfg.Sessions)(handler)

	// 2. Apply logging middleware
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)

	// 3. Wrap with otelhttp for trace propagation (outermost)
	handler = otelhttp.NewHandler(handler, "tanager")

	return handler
}
