package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"careaudit-backend/internal/jobs"
	"careaudit-backend/internal/shared/telemetry"
)

// Notifier records and emails audit outcomes.
type Notifier struct {
	Repo  Repo
	Email EmailSender
	// FallbackEmail returns a tenant-level address used when the requester
	// left none. Optional.
	FallbackEmail func(ctx context.Context, tenantID int64) string
}

// JobCompleted announces a completed audit.
func (n *Notifier) JobCompleted(ctx context.Context, job jobs.Job) error {
	score := 0
	if job.Score != nil {
		score = *job.Score
	}
	title := fmt.Sprintf("Audit complete: %s", job.ReportSubject())
	body := fmt.Sprintf("The CQC compliance audit of %s finished with an overall score of %d%%. The report is ready to download.", displayFile(job), score)
	return n.send(ctx, job, KindAuditCompleted, title, body)
}

// JobFailed announces a failed audit with the error text.
func (n *Notifier) JobFailed(ctx context.Context, job jobs.Job, reason string) error {
	title := fmt.Sprintf("Audit failed: %s", job.ReportSubject())
	body := fmt.Sprintf("The CQC compliance audit of %s could not be completed: %s. Please check the document and submit it again.", displayFile(job), reason)
	return n.send(ctx, job, KindAuditFailed, title, body)
}

func (n *Notifier) send(ctx context.Context, job jobs.Job, kind, title, body string) error {
	var errs []error
	if n.Repo != nil && job.RequestedBy != "" {
		_, err := n.Repo.Create(ctx, Notification{
			TenantID: job.TenantID,
			UserID:   job.RequestedBy,
			JobID:    job.ID,
			Kind:     kind,
			Title:    title,
			Body:     body,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("in-app notification: %w", err))
		}
	}

	to := strings.TrimSpace(job.RequestedByEmail)
	if to == "" && n.FallbackEmail != nil {
		to = n.FallbackEmail(ctx, job.TenantID)
	}
	if n.Email != nil && to != "" {
		err := n.Email.SendEmail(ctx, Email{
			To:      to,
			Subject: title,
			HTML:    "<p>" + html.EscapeString(body) + "</p>",
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		telemetry.Error("notify.failed", map[string]any{"job_id": job.ID, "kind": kind, "error": err})
	}
	return err
}

func displayFile(job jobs.Job) string {
	if job.FileName != "" {
		return job.FileName
	}
	return fmt.Sprintf("audit #%d", job.ID)
}
