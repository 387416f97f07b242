package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StatsSource provides functions to retrieve current counts for gauge metrics.
// A nil function means the source is unavailable and its gauge is skipped.
type StatsSource struct {
	ActiveRestrictions func(ctx context.Context) (int, error)
	RecentActions      func(ctx context.Context) (int, error)
	RecentReports      func(ctx context.Context) (int, error)
}

// StartCollector launches a goroutine that periodically updates gauge metrics.
// It runs every interval until the context is cancelled.
func StartCollector(ctx context.Context, src StatsSource, interval time.Duration) {
	// Do an initial collection immediately
	collect(ctx, src)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect(ctx, src)
			}
		}
	}()

	log.Info().Dur("interval", interval).Msg("Metrics collector started")
}

func collect(ctx context.Context, src StatsSource) {
	if src.ActiveRestrictions != nil {
		if n, err := src.ActiveRestrictions(ctx); err == nil {
			ActiveRestrictionsTotal.Set(float64(n))
		}
	}
	if src.RecentActions != nil {
		if n, err := src.RecentActions(ctx); err == nil {
			RecentActionsTotal.Set(float64(n))
		}
	}
	if src.RecentReports != nil {
		if n, err := src.RecentReports(ctx); err == nil {
			RecentReportsTotal.Set(float64(n))
		}
	}
}
