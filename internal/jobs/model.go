// Package jobs owns the audit_jobs queue: submission, the claim/complete/fail
// state machine, and the read side used by the API.
package jobs

import (
	"encoding/json"
	"strings"
	"time"
)

// Job statuses. pending -> processing -> completed|failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job is one audit request.
type Job struct {
	ID         int64
	TenantID   int64
	LocationID int64
	Kind       string

	SourceURL     string
	SourceTempKey string
	SourceDataURL string
	FileName      string

	SubjectDisplayName   string
	OriginalFirstName    string
	OriginalLastName     string
	ReplacementFirstName string
	ReplacementLastName  string
	KeepOriginalNames    bool

	Status           string
	Progress         string
	Score            *int
	ErrorMessage     *string
	DetailedAnalysis json.RawMessage
	ReportData       []byte
	ReportFileName   string

	RequestedBy      string
	RequestedByEmail string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

// Completion carries the results persisted when a job completes.
type Completion struct {
	Score            int
	DetailedAnalysis json.RawMessage
	ReportData       []byte
	ReportFileName   string
	ProcessedAt      time.Time
}

// IsTerminal reports whether the job has finished.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// WantsRedaction reports whether the subject's name should be replaced before scoring.
func (j Job) WantsRedaction() bool {
	if j.KeepOriginalNames {
		return false
	}
	return strings.TrimSpace(j.ReplacementFirstName) != "" || strings.TrimSpace(j.ReplacementLastName) != ""
}

// ReportSubject is the name printed in the report and used in its file name.
// Redacted jobs never expose the original name.
func (j Job) ReportSubject() string {
	if j.WantsRedaction() {
		return joinName(j.ReplacementFirstName, j.ReplacementLastName)
	}
	if s := strings.TrimSpace(j.SubjectDisplayName); s != "" {
		return s
	}
	if s := joinName(j.OriginalFirstName, j.OriginalLastName); s != "" {
		return s
	}
	return "Service User"
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
