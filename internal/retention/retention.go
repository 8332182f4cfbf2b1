// Package retention clears report binaries and source references from old
// finished audits. Scores and analysis JSON are kept so reports can be rebuilt.
package retention

import (
	"context"
	"time"

	"careaudit-backend/internal/jobs"
	"careaudit-backend/internal/shared/metrics"
	"careaudit-backend/internal/shared/telemetry"
)

const (
	defaultDays     = 90
	defaultInterval = 6 * time.Hour
)

// TempStore removes temp uploads still referenced by purged jobs.
type TempStore interface {
	Delete(ctx context.Context, storageKey string) error
}

// Purger runs retention cleanup.
type Purger struct {
	Repo     jobs.Repo
	Temp     TempStore
	Days     int
	Interval time.Duration
	Now      func() time.Time
}

// Purge clears terminal jobs created more than Days ago. Job status is left as is.
func (p *Purger) Purge(ctx context.Context) (jobs.PurgeResult, error) {
	days := p.Days
	if days <= 0 {
		days = defaultDays
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().UTC().AddDate(0, 0, -days)
	res, err := p.Repo.PurgeExpired(ctx, cutoff)
	if err != nil {
		return jobs.PurgeResult{}, err
	}
	if p.Temp != nil {
		for _, key := range res.TempKeys {
			if err := p.Temp.Delete(ctx, key); err != nil {
				telemetry.Error("retention.temp_delete_failed", map[string]any{"storage_key": key, "error": err.Error()})
			}
		}
	}
	metrics.AddReportsPurged(res.Rows)
	if res.Rows > 0 {
		telemetry.Info("retention.purged", map[string]any{
			"rows":      res.Rows,
			"temp_keys": len(res.TempKeys),
			"cutoff":    cutoff.Format(time.RFC3339),
		})
	}
	return res, nil
}

// Run purges on Interval until ctx is cancelled.
func (p *Purger) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := p.Purge(ctx); err != nil && ctx.Err() == nil {
			telemetry.Error("retention.purge_failed", map[string]any{"error": err.Error()})
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
