// Package worker claims pending audit jobs and runs them through the analysis
// pipeline, one job at a time per process.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"careaudit-backend/internal/analysis"
	"careaudit-backend/internal/extract"
	"careaudit-backend/internal/jobs"
	"careaudit-backend/internal/llm"
	"careaudit-backend/internal/redact"
	"careaudit-backend/internal/report"
	"careaudit-backend/internal/scoring"
	"careaudit-backend/internal/shared/metrics"
	"careaudit-backend/internal/shared/telemetry"
	"careaudit-backend/internal/source"
	"careaudit-backend/internal/tenants"
)

const (
	defaultPollInterval = 5 * time.Second

	progressClaimed = "Starting analysis"
)

// CredentialResolver finds the scoring credential for a tenant.
type CredentialResolver interface {
	ScoringCredential(ctx context.Context, tenantID int64) (tenants.Credential, error)
}

// SourceFetcher loads the submitted document.
type SourceFetcher interface {
	Fetch(ctx context.Context, ref source.Reference) ([]byte, error)
}

// TempStore removes consumed temp uploads.
type TempStore interface {
	Delete(ctx context.Context, storageKey string) error
}

// Notifier announces job outcomes.
type Notifier interface {
	JobCompleted(ctx context.Context, job jobs.Job) error
	JobFailed(ctx context.Context, job jobs.Job, reason string) error
}

// OracleFactory builds the scoring oracle for a credential.
type OracleFactory func(ctx context.Context, cred tenants.Credential) (llm.Oracle, error)

// Deps are the collaborators a Worker drives. Temp and Notifier are optional.
type Deps struct {
	Repo        jobs.Repo
	Credentials CredentialResolver
	Fetcher     SourceFetcher
	Temp        TempStore
	Notifier    Notifier
	Oracles     OracleFactory
}

// Options tunes a Worker.
type Options struct {
	WorkerID             string
	PollInterval         time.Duration
	Scoring              scoring.Options
	DailyNotesMaxEntries int
	Now                  func() time.Time
}

// Worker polls the job table. Only one job runs at a time.
type Worker struct {
	deps   Deps
	opts   Options
	busy   atomic.Bool
	status statusTracker
}

// New constructs a Worker.
func New(deps Deps, opts Options) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WorkerID == "" {
		opts.WorkerID = uuid.NewString()
	}
	w := &Worker{deps: deps, opts: opts}
	w.status.s = Status{WorkerID: opts.WorkerID, StartedAt: opts.Now().UTC()}
	return w
}

// ID returns the worker's identifier.
func (w *Worker) ID() string { return w.opts.WorkerID }

// Snapshot returns the current worker status.
func (w *Worker) Snapshot() Status { return w.status.snapshot() }

// Run polls until ctx is cancelled. The first poll happens immediately.
func (w *Worker) Run(ctx context.Context) error {
	telemetry.Info("worker.started", map[string]any{
		"worker_id":     w.opts.WorkerID,
		"poll_interval": w.opts.PollInterval.String(),
	})
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	for {
		w.pollOnce(ctx)
		select {
		case <-ctx.Done():
			telemetry.Info("worker.stopped", map[string]any{"worker_id": w.opts.WorkerID})
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Worker) pollOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.Poll(ctx); err != nil {
		var claimErr ErrClaim
		if errors.As(err, &claimErr) {
			telemetry.Error("worker.poll.claim_failed", map[string]any{
				"worker_id": w.opts.WorkerID,
				"error":     claimErr.Error(),
			})
		}
	}
}

// Poll claims and processes at most one job. It returns false without
// touching the queue when this worker is already busy, and false with a nil
// error when nothing is pending. Once claimed, a job runs to a terminal state
// even if ctx is cancelled.
func (w *Worker) Poll(ctx context.Context) (bool, error) {
	if !w.busy.CompareAndSwap(false, true) {
		return false, nil
	}
	defer w.busy.Store(false)

	w.status.polled(w.opts.Now().UTC())
	job, err := w.deps.Repo.ClaimNextPending(ctx, progressClaimed)
	if errors.Is(err, jobs.ErrNoPendingJobs) {
		return false, nil
	}
	if err != nil {
		err = ErrClaim{Err: err}
		w.status.recordError(err, w.opts.Now().UTC())
		return false, err
	}
	metrics.IncJobsClaimed()
	telemetry.Info("worker.poll.claimed", map[string]any{
		"worker_id":  w.opts.WorkerID,
		"job_id":     job.ID,
		"tenant_id":  job.TenantID,
		"audit_kind": job.Kind,
	})
	return true, w.Process(context.WithoutCancel(ctx), job)
}

// Process runs the pipeline for a job already in processing. On failure the
// job is marked failed with the error text and an ErrProcess is returned.
func (w *Worker) Process(ctx context.Context, job jobs.Job) error {
	started := w.opts.Now()
	w.status.begin(job.ID, job.Progress)

	done, err := w.run(ctx, job)
	finished := w.opts.Now()
	metrics.ObserveJobDurationMs(float64(finished.Sub(started).Milliseconds()))
	if err != nil {
		w.fail(ctx, job, err)
		w.status.finish(err, finished.UTC())
		return ErrProcess{JobID: job.ID, Err: err}
	}
	w.status.finish(nil, finished.UTC())

	metrics.IncJobsCompleted()
	fields := map[string]any{
		"worker_id":   w.opts.WorkerID,
		"job_id":      job.ID,
		"duration_ms": finished.Sub(started).Milliseconds(),
	}
	if done.Score != nil {
		fields["score"] = *done.Score
	}
	telemetry.Info("worker.job.completed", fields)

	if w.deps.Notifier != nil {
		if err := w.deps.Notifier.JobCompleted(ctx, done); err != nil {
			telemetry.Error("worker.notify_failed", map[string]any{"job_id": job.ID, "error": err.Error()})
		}
	}
	return nil
}

// run executes pipeline steps through deleting the temp upload and returns the
// job as completed.
func (w *Worker) run(ctx context.Context, job jobs.Job) (jobs.Job, error) {
	w.progress(ctx, job.ID, "Resolving scoring credential")
	if w.deps.Credentials == nil {
		return job, fmt.Errorf("%w for tenant %d", tenants.ErrMissingCredential, job.TenantID)
	}
	cred, err := w.deps.Credentials.ScoringCredential(ctx, job.TenantID)
	if err != nil {
		return job, err
	}
	if w.deps.Oracles == nil {
		return job, llm.ErrNotImplemented
	}
	oracle, err := w.deps.Oracles(ctx, cred)
	if err != nil {
		return job, fmt.Errorf("scoring oracle: %w", err)
	}

	w.progress(ctx, job.ID, "Fetching document")
	data, err := w.deps.Fetcher.Fetch(ctx, source.Reference{
		DataURL: job.SourceDataURL,
		TempKey: job.SourceTempKey,
		URL:     job.SourceURL,
	})
	if err != nil {
		return job, err
	}

	w.progress(ctx, job.ID, "Parsing document")
	parsed, err := extract.Parse(ctx, data, job.FileName)
	if err != nil {
		return job, err
	}

	text := parsed.Text
	var replacement *analysis.NameReplacement
	if job.WantsRedaction() {
		w.progress(ctx, job.ID, "Replacing names")
		res := redact.Apply(text, job.OriginalFirstName, job.OriginalLastName, job.ReplacementFirstName, job.ReplacementLastName)
		text = res.Text
		replacement = &analysis.NameReplacement{
			Original:     res.Original,
			Replacement:  res.Replacement,
			Replacements: res.Replacements,
		}
	}

	analyzer, err := w.analyzerFor(job.Kind, oracle)
	if err != nil {
		return job, err
	}
	subject := job.ReportSubject()
	result, err := analyzer.Analyze(ctx, text, subject, func(ctx context.Context, msg string) {
		w.progress(ctx, job.ID, msg)
	})
	if err != nil {
		return job, err
	}
	result.NameReplacement = replacement
	result.FileMetadata = &analysis.FileMetadata{
		FileName:  job.FileName,
		Format:    parsed.Metadata.Format,
		PageCount: parsed.Metadata.PageCount,
		WordCount: parsed.Metadata.WordCount,
	}

	w.progress(ctx, job.ID, "Generating report")
	processedAt := w.opts.Now().UTC()
	docx, err := report.Generate(subject, processedAt, result)
	if err != nil {
		return job, fmt.Errorf("generate report: %w", err)
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return job, fmt.Errorf("encode analysis: %w", err)
	}

	completion := jobs.Completion{
		Score:            result.OverallScore,
		DetailedAnalysis: raw,
		ReportData:       docx,
		ReportFileName:   report.FileName(subject, processedAt),
		ProcessedAt:      processedAt,
	}
	if err := w.deps.Repo.Complete(ctx, job.ID, completion); err != nil {
		return job, fmt.Errorf("persist result: %w", err)
	}

	if job.SourceTempKey != "" && w.deps.Temp != nil {
		if err := w.deps.Temp.Delete(ctx, job.SourceTempKey); err != nil {
			telemetry.Error("worker.temp_delete_failed", map[string]any{
				"job_id":      job.ID,
				"storage_key": job.SourceTempKey,
				"error":       err.Error(),
			})
		}
	}

	score := completion.Score
	job.Status = jobs.StatusCompleted
	job.Progress = "Completed"
	job.Score = &score
	job.DetailedAnalysis = raw
	job.ReportData = docx
	job.ReportFileName = completion.ReportFileName
	job.ProcessedAt = &processedAt
	return job, nil
}

func (w *Worker) analyzerFor(kind string, oracle llm.Oracle) (analysis.Analyzer, error) {
	scorer := scoring.New(oracle, w.opts.Scoring)
	switch kind {
	case analysis.KindCarePlan, "":
		return analysis.NewAggregator(scorer), nil
	case analysis.KindDailyNotes:
		return analysis.NewDailyNotes(scorer.WithRubric(scoring.DailyNotesRubric), w.opts.DailyNotesMaxEntries), nil
	default:
		return nil, fmt.Errorf("unsupported audit kind %q", kind)
	}
}

func (w *Worker) progress(ctx context.Context, jobID int64, msg string) {
	w.status.progress(msg)
	if err := w.deps.Repo.UpdateProgress(ctx, jobID, msg); err != nil {
		telemetry.Error("worker.progress_failed", map[string]any{
			"job_id":   jobID,
			"progress": msg,
			"error":    err.Error(),
		})
	}
}

func (w *Worker) fail(ctx context.Context, job jobs.Job, cause error) {
	metrics.IncJobsFailed()
	reason := cause.Error()
	telemetry.Error("worker.job.failed", map[string]any{
		"worker_id": w.opts.WorkerID,
		"job_id":    job.ID,
		"tenant_id": job.TenantID,
		"error":     reason,
	})
	if err := w.deps.Repo.Fail(ctx, job.ID, reason); err != nil {
		telemetry.Error("worker.job.fail_persist_failed", map[string]any{"job_id": job.ID, "error": err.Error()})
		if errors.Is(err, jobs.ErrInvalidTransition) {
			// Someone else already finished the row (the stale sweeper) and announced it.
			return
		}
	}
	if w.deps.Notifier == nil {
		return
	}
	job.Status = jobs.StatusFailed
	job.ErrorMessage = &reason
	if err := w.deps.Notifier.JobFailed(ctx, job, reason); err != nil {
		telemetry.Error("worker.notify_failed", map[string]any{"job_id": job.ID, "error": err.Error()})
	}
}
