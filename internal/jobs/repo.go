package jobs

import (
	"context"
	"time"
)

// Repo defines persistence operations for audit jobs.
type Repo interface {
	Create(ctx context.Context, job Job) (int64, error)
	GetByID(ctx context.Context, id int64) (Job, error)
	ListByTenant(ctx context.Context, tenantID int64, limit, offset int) ([]Job, error)
	Delete(ctx context.Context, tenantID, id int64) error

	// ClaimNextPending atomically moves the oldest pending job to processing.
	// Returns ErrNoPendingJobs when the queue is empty.
	ClaimNextPending(ctx context.Context, progress string) (Job, error)
	UpdateProgress(ctx context.Context, id int64, progress string) error
	Complete(ctx context.Context, id int64, c Completion) error
	Fail(ctx context.Context, id int64, message string) error
	SaveReport(ctx context.Context, id int64, data []byte, fileName string) error

	// FailStale fails processing jobs untouched since before and returns them.
	FailStale(ctx context.Context, before time.Time, message string) ([]Job, error)
	// PurgeExpired nulls report and source fields on terminal jobs created before cutoff.
	PurgeExpired(ctx context.Context, cutoff time.Time) (PurgeResult, error)
}

// PurgeResult reports what a retention purge cleared.
type PurgeResult struct {
	Rows     int64
	TempKeys []string
}
