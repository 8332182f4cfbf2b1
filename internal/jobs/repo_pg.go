package jobs

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `id, tenant_id, location_id, audit_kind, source_url, source_temp_key, source_data_url, file_name,
       subject_display_name, original_first_name, original_last_name, replacement_first_name, replacement_last_name,
       keep_original_names, status, progress, score, error_message, detailed_analysis, report_data, report_file_name,
       requested_by, requested_by_email, created_at, updated_at, processed_at`

// Listing skips the heavy payload columns.
const jobListColumns = `id, tenant_id, location_id, audit_kind, source_url, source_temp_key, source_data_url, file_name,
       subject_display_name, original_first_name, original_last_name, replacement_first_name, replacement_last_name,
       keep_original_names, status, progress, score, error_message, NULL::jsonb, NULL::bytea, report_file_name,
       requested_by, requested_by_email, created_at, updated_at, processed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a pending job and returns its ID.
func (r *PGRepo) Create(ctx context.Context, job Job) (int64, error) {
	const query = `
INSERT INTO audit_jobs (
	tenant_id, location_id, audit_kind, source_url, source_temp_key, source_data_url, file_name,
	subject_display_name, original_first_name, original_last_name, replacement_first_name, replacement_last_name,
	keep_original_names, status, progress, requested_by, requested_by_email
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id`
	var id int64
	err := r.DB.QueryRowContext(ctx, query,
		job.TenantID,
		job.LocationID,
		job.Kind,
		nullIfEmpty(job.SourceURL),
		nullIfEmpty(job.SourceTempKey),
		nullIfEmpty(job.SourceDataURL),
		job.FileName,
		job.SubjectDisplayName,
		job.OriginalFirstName,
		job.OriginalLastName,
		nullIfEmpty(job.ReplacementFirstName),
		nullIfEmpty(job.ReplacementLastName),
		job.KeepOriginalNames,
		StatusPending,
		job.Progress,
		job.RequestedBy,
		nullIfEmpty(job.RequestedByEmail),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetByID returns a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM audit_jobs WHERE id = $1 LIMIT 1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// ListByTenant returns a tenant's jobs newest first.
func (r *PGRepo) ListByTenant(ctx context.Context, tenantID int64, limit, offset int) ([]Job, error) {
	query := `SELECT ` + jobListColumns + `
FROM audit_jobs
WHERE tenant_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Delete removes a terminal job owned by the tenant.
func (r *PGRepo) Delete(ctx context.Context, tenantID, id int64) error {
	const query = `DELETE FROM audit_jobs WHERE id = $1 AND tenant_id = $2 AND status IN ('completed', 'failed')`
	res, err := r.DB.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var status string
	err = r.DB.QueryRowContext(ctx, `SELECT status FROM audit_jobs WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrNotTerminal
}

// ClaimNextPending marks the oldest pending job processing in a single
// statement. SKIP LOCKED lets concurrent workers claim different rows.
func (r *PGRepo) ClaimNextPending(ctx context.Context, progress string) (Job, error) {
	query := `
UPDATE audit_jobs
SET status = 'processing', progress = $1, updated_at = now()
WHERE id = (
	SELECT id FROM audit_jobs
	WHERE status = 'pending'
	ORDER BY created_at, id
	LIMIT 1
	FOR UPDATE SKIP LOCKED
) AND status = 'pending'
RETURNING ` + jobColumns
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, progress))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNoPendingJobs
		}
		return Job{}, err
	}
	return job, nil
}

// UpdateProgress sets the progress message on a processing job.
func (r *PGRepo) UpdateProgress(ctx context.Context, id int64, progress string) error {
	const query = `UPDATE audit_jobs SET progress = $1, updated_at = now() WHERE id = $2 AND status = 'processing'`
	res, err := r.DB.ExecContext(ctx, query, progress, id)
	if err != nil {
		return err
	}
	return expectTransition(res)
}

// Complete persists results and moves processing -> completed.
func (r *PGRepo) Complete(ctx context.Context, id int64, c Completion) error {
	const query = `
UPDATE audit_jobs
SET status = 'completed',
    progress = 'Completed',
    score = $1,
    detailed_analysis = $2::jsonb,
    report_data = $3,
    report_file_name = $4,
    error_message = NULL,
    processed_at = $5,
    updated_at = now()
WHERE id = $6 AND status = 'processing'`
	processedAt := c.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}
	res, err := r.DB.ExecContext(ctx, query, c.Score, []byte(c.DetailedAnalysis), c.ReportData, c.ReportFileName, processedAt, id)
	if err != nil {
		return err
	}
	return expectTransition(res)
}

// Fail moves processing -> failed with the error text.
func (r *PGRepo) Fail(ctx context.Context, id int64, message string) error {
	const query = `
UPDATE audit_jobs
SET status = 'failed', progress = 'Failed', error_message = $1, processed_at = now(), updated_at = now()
WHERE id = $2 AND status = 'processing'`
	res, err := r.DB.ExecContext(ctx, query, message, id)
	if err != nil {
		return err
	}
	return expectTransition(res)
}

// SaveReport stores a regenerated report on a completed job.
func (r *PGRepo) SaveReport(ctx context.Context, id int64, data []byte, fileName string) error {
	const query = `UPDATE audit_jobs SET report_data = $1, report_file_name = $2 WHERE id = $3 AND status = 'completed'`
	res, err := r.DB.ExecContext(ctx, query, data, fileName, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailStale fails processing jobs whose last update is older than before.
func (r *PGRepo) FailStale(ctx context.Context, before time.Time, message string) ([]Job, error) {
	query := `
UPDATE audit_jobs
SET status = 'failed', progress = 'Failed', error_message = $1, processed_at = now(), updated_at = now()
WHERE status = 'processing' AND updated_at < $2
RETURNING ` + jobColumns
	rows, err := r.DB.QueryContext(ctx, query, message, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// PurgeExpired nulls report and source fields on terminal jobs created before
// cutoff. Status is left untouched. The temp keys that were cleared are
// returned so their objects can be removed.
func (r *PGRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (PurgeResult, error) {
	const query = `
WITH expired AS (
	SELECT id, source_temp_key
	FROM audit_jobs
	WHERE status IN ('completed', 'failed')
	  AND created_at < $1
	  AND (report_data IS NOT NULL OR source_url IS NOT NULL OR source_temp_key IS NOT NULL OR source_data_url IS NOT NULL)
	FOR UPDATE
)
UPDATE audit_jobs j
SET report_data = NULL, source_url = NULL, source_temp_key = NULL, source_data_url = NULL
FROM expired e
WHERE j.id = e.id
RETURNING e.source_temp_key`
	rows, err := r.DB.QueryContext(ctx, query, cutoff)
	if err != nil {
		return PurgeResult{}, err
	}
	defer rows.Close()

	var out PurgeResult
	for rows.Next() {
		var key sql.NullString
		if err := rows.Scan(&key); err != nil {
			return PurgeResult{}, err
		}
		out.Rows++
		if key.Valid && key.String != "" {
			out.TempKeys = append(out.TempKeys, key.String)
		}
	}
	return out, rows.Err()
}

func collectJobs(rows *sql.Rows) ([]Job, error) {
	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanJob(row rowScanner) (Job, error) {
	var j Job
	var sourceURL sql.NullString
	var sourceTempKey sql.NullString
	var sourceDataURL sql.NullString
	var replacementFirst sql.NullString
	var replacementLast sql.NullString
	var score sql.NullInt64
	var errorMessage sql.NullString
	var detailed []byte
	var reportData []byte
	var reportFileName sql.NullString
	var requestedByEmail sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(
		&j.ID,
		&j.TenantID,
		&j.LocationID,
		&j.Kind,
		&sourceURL,
		&sourceTempKey,
		&sourceDataURL,
		&j.FileName,
		&j.SubjectDisplayName,
		&j.OriginalFirstName,
		&j.OriginalLastName,
		&replacementFirst,
		&replacementLast,
		&j.KeepOriginalNames,
		&j.Status,
		&j.Progress,
		&score,
		&errorMessage,
		&detailed,
		&reportData,
		&reportFileName,
		&j.RequestedBy,
		&requestedByEmail,
		&j.CreatedAt,
		&j.UpdatedAt,
		&processedAt,
	)
	if err != nil {
		return Job{}, err
	}
	j.SourceURL = sourceURL.String
	j.SourceTempKey = sourceTempKey.String
	j.SourceDataURL = sourceDataURL.String
	j.ReplacementFirstName = replacementFirst.String
	j.ReplacementLastName = replacementLast.String
	j.ReportFileName = reportFileName.String
	j.RequestedByEmail = requestedByEmail.String
	if score.Valid {
		v := int(score.Int64)
		j.Score = &v
	}
	if errorMessage.Valid {
		j.ErrorMessage = &errorMessage.String
	}
	if len(detailed) > 0 {
		j.DetailedAnalysis = detailed
	}
	if len(reportData) > 0 {
		j.ReportData = reportData
	}
	if processedAt.Valid {
		j.ProcessedAt = &processedAt.Time
	}
	return j, nil
}

func expectTransition(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
