package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tanager_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tanager_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Moderation engine metrics
var (
	SuspensionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tanager_suspensions_total",
		Help: "Total number of suspension applications",
	}, []string{"mode", "status"})

	SuspensionLiftsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tanager_suspension_lifts_total",
		Help: "Total number of suspension reversals",
	}, []string{"status"})

	AuthzDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tanager_authz_denials_total",
		Help: "Total number of authorization denials",
	}, []string{"operation"})

	ContentDeletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tanager_content_deletions_total",
		Help: "Total number of moderator content deletions",
	}, []string{"content_type"})

	ReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tanager_reports_total",
		Help: "Total number of abuse reports submitted",
	})

	DuplicateReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tanager_duplicate_reports_total",
		Help: "Total number of report submissions rejected as duplicates",
	})
)

// Business gauges (updated periodically by the collector)
var (
	ActiveRestrictionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tanager_active_restrictions_total",
		Help: "Number of currently active user restrictions",
	})

	RecentActionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tanager_recent_actions_total",
		Help: "Number of moderation actions recorded in the last 24 hours",
	})

	RecentReportsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tanager_recent_reports_total",
		Help: "Number of abuse reports submitted in the last 24 hours",
	})
)

// NormalizePath reduces high-cardinality path labels by replacing dynamic
// segments with placeholders. This keeps the metric label space bounded.
func NormalizePath(path string) string {
	segments := splitPath(path)
	if len(segments) < 2 || segments[0] != "api" {
		return path
	}

	switch segments[1] {
	case "suspensions", "restrictions", "roles":
		if len(segments) == 3 {
			return "/api/" + segments[1] + "/:user_id"
		}
	case "users":
		if len(segments) == 4 && segments[3] == "actions" {
			return "/api/users/:user_id/actions"
		}
	}

	return path
}

func splitPath(path string) []string {
	// Skip leading slash
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	// Split on /
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}
	return segments
}
