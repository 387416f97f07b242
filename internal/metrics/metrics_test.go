package metrics

import (
	"context"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Exact routes (no normalization needed)
		{"/", "/"},
		{"/healthz", "/healthz"},
		{"/metrics", "/metrics"},
		{"/api/reports", "/api/reports"},
		{"/api/reports/duplicate-check", "/api/reports/duplicate-check"},
		{"/api/content/delete", "/api/content/delete"},
		{"/api/notifications/link", "/api/notifications/link"},
		{"/api/audit-log", "/api/audit-log"},
		{"/api/admin/overview", "/api/admin/overview"},

		// Routes with user ids
		{"/api/suspensions/user-123", "/api/suspensions/:user_id"},
		{"/api/restrictions/user-123", "/api/restrictions/:user_id"},
		{"/api/roles/user-123", "/api/roles/:user_id"},
		{"/api/users/user-123/actions", "/api/users/:user_id/actions"},

		// Collection root is not an id
		{"/api/suspensions", "/api/suspensions"},

		// Unknown paths pass through
		{"/api/unknown/abc", "/api/unknown/abc"},
		{"/other/thing", "/other/thing"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizePath(tt.input), "path %s", tt.input)
	}
}

func TestSplitPath(t *testing.T) {
	assert.Empty(t, splitPath("/"))
	assert.Equal(t, []string{"api", "reports"}, splitPath("/api/reports"))
	assert.Equal(t, []string{"api", "reports"}, splitPath("/api//reports/"))
	assert.Equal(t, []string{"healthz"}, splitPath("healthz"))
}

func gaugeValue(t *testing.T) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, ActiveRestrictionsTotal.Write(m))
	return m.GetGauge().GetValue()
}

func TestCollector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := StatsSource{
		ActiveRestrictions: func(ctx context.Context) (int, error) {
			return 7, nil
		},
	}

	// The initial collection runs synchronously before the ticker starts.
	StartCollector(ctx, src, time.Hour)
	assert.Equal(t, float64(7), gaugeValue(t))
}
