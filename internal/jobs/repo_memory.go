package jobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use. The mutex
// makes ClaimNextPending atomic within one process.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Job
	now    func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[int64]Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a pending job.
func (r *MemoryRepo) Create(ctx context.Context, job Job) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	job.ID = r.nextID
	job.Status = StatusPending
	now := r.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	r.byID[job.ID] = job
	return job.ID, nil
}

// GetByID returns a job by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// ListByTenant returns a tenant's jobs newest first without payload columns.
func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID int64, limit, offset int) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var items []Job
	for _, job := range r.byID {
		if job.TenantID != tenantID {
			continue
		}
		job.DetailedAnalysis = nil
		job.ReportData = nil
		items = append(items, job)
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if offset >= len(items) {
		return []Job{}, nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end], nil
}

// Delete removes a terminal job owned by the tenant.
func (r *MemoryRepo) Delete(ctx context.Context, tenantID, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[id]
	if !ok || job.TenantID != tenantID {
		return ErrNotFound
	}
	if !job.IsTerminal() {
		return ErrNotTerminal
	}
	delete(r.byID, id)
	return nil
}

// ClaimNextPending moves the oldest pending job to processing.
func (r *MemoryRepo) ClaimNextPending(ctx context.Context, progress string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *Job
	for id := range r.byID {
		job := r.byID[id]
		if job.Status != StatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) ||
			(job.CreatedAt.Equal(oldest.CreatedAt) && job.ID < oldest.ID) {
			j := job
			oldest = &j
		}
	}
	if oldest == nil {
		return Job{}, ErrNoPendingJobs
	}
	oldest.Status = StatusProcessing
	oldest.Progress = progress
	oldest.UpdatedAt = r.now()
	r.byID[oldest.ID] = *oldest
	return *oldest, nil
}

// UpdateProgress sets the progress message on a processing job.
func (r *MemoryRepo) UpdateProgress(ctx context.Context, id int64, progress string) error {
	return r.mutateProcessing(ctx, id, func(job *Job) {
		job.Progress = progress
	})
}

// Complete persists results and moves processing -> completed.
func (r *MemoryRepo) Complete(ctx context.Context, id int64, c Completion) error {
	return r.mutateProcessing(ctx, id, func(job *Job) {
		score := c.Score
		processedAt := c.ProcessedAt
		if processedAt.IsZero() {
			processedAt = r.now()
		}
		job.Status = StatusCompleted
		job.Progress = "Completed"
		job.Score = &score
		job.DetailedAnalysis = c.DetailedAnalysis
		job.ReportData = c.ReportData
		job.ReportFileName = c.ReportFileName
		job.ErrorMessage = nil
		job.ProcessedAt = &processedAt
	})
}

// Fail moves processing -> failed with the error text.
func (r *MemoryRepo) Fail(ctx context.Context, id int64, message string) error {
	return r.mutateProcessing(ctx, id, func(job *Job) {
		failJob(job, message, r.now())
	})
}

// SaveReport stores a regenerated report on a completed job.
func (r *MemoryRepo) SaveReport(ctx context.Context, id int64, data []byte, fileName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[id]
	if !ok || job.Status != StatusCompleted {
		return ErrNotFound
	}
	job.ReportData = data
	job.ReportFileName = fileName
	r.byID[id] = job
	return nil
}

// FailStale fails processing jobs whose last update is older than before.
func (r *MemoryRepo) FailStale(ctx context.Context, before time.Time, message string) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Job
	for id, job := range r.byID {
		if job.Status != StatusProcessing || !job.UpdatedAt.Before(before) {
			continue
		}
		failJob(&job, message, r.now())
		r.byID[id] = job
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PurgeExpired nulls report and source fields on old terminal jobs.
func (r *MemoryRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (PurgeResult, error) {
	if err := ctx.Err(); err != nil {
		return PurgeResult{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out PurgeResult
	for id, job := range r.byID {
		if !job.IsTerminal() || !job.CreatedAt.Before(cutoff) {
			continue
		}
		if job.ReportData == nil && job.SourceURL == "" && job.SourceTempKey == "" && job.SourceDataURL == "" {
			continue
		}
		if job.SourceTempKey != "" {
			out.TempKeys = append(out.TempKeys, job.SourceTempKey)
		}
		job.ReportData = nil
		job.SourceURL = ""
		job.SourceTempKey = ""
		job.SourceDataURL = ""
		r.byID[id] = job
		out.Rows++
	}
	sort.Strings(out.TempKeys)
	return out, nil
}

func (r *MemoryRepo) mutateProcessing(ctx context.Context, id int64, fn func(*Job)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[id]
	if !ok || job.Status != StatusProcessing {
		return ErrInvalidTransition
	}
	fn(&job)
	job.UpdatedAt = r.now()
	r.byID[id] = job
	return nil
}

func failJob(job *Job, message string, now time.Time) {
	msg := message
	job.Status = StatusFailed
	job.Progress = "Failed"
	job.ErrorMessage = &msg
	job.ProcessedAt = &now
	job.UpdatedAt = now
}

var _ Repo = (*MemoryRepo)(nil)
