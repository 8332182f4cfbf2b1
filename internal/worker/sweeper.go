package worker

import (
	"context"
	"time"

	"careaudit-backend/internal/jobs"
	"careaudit-backend/internal/shared/metrics"
	"careaudit-backend/internal/shared/telemetry"
)

// StaleJobMessage is the error recorded on jobs abandoned mid-flight.
const StaleJobMessage = "worker interrupted"

const (
	defaultStaleAfter    = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// Sweeper fails processing jobs whose worker stopped updating them. Jobs are
// never put back to pending.
type Sweeper struct {
	Repo       jobs.Repo
	Notifier   Notifier
	StaleAfter time.Duration
	Interval   time.Duration
	Now        func() time.Time
}

// Sweep fails every stale processing job and returns how many it failed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	staleAfter := s.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	failed, err := s.Repo.FailStale(ctx, now().UTC().Add(-staleAfter), StaleJobMessage)
	if err != nil {
		return 0, err
	}
	for _, job := range failed {
		metrics.IncJobsFailed()
		telemetry.Error("worker.job.stale", map[string]any{
			"job_id":     job.ID,
			"tenant_id":  job.TenantID,
			"updated_at": job.UpdatedAt,
		})
		if s.Notifier == nil {
			continue
		}
		if err := s.Notifier.JobFailed(ctx, job, StaleJobMessage); err != nil {
			telemetry.Error("worker.notify_failed", map[string]any{"job_id": job.ID, "error": err.Error()})
		}
	}
	return len(failed), nil
}

// Run sweeps on Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			telemetry.Error("worker.sweep_failed", map[string]any{"error": err.Error()})
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
