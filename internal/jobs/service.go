package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"careaudit-backend/internal/analysis"
	"careaudit-backend/internal/extract"
	"careaudit-backend/internal/report"
	"careaudit-backend/internal/shared/metrics"
	"careaudit-backend/internal/shared/storage/object"
	"careaudit-backend/internal/shared/telemetry"
	"careaudit-backend/internal/shared/util"
	"careaudit-backend/internal/source"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// Owner identifies who submitted a job.
type Owner struct {
	TenantID int64
	UserID   string
	Email    string
}

// SubmitRequest is the job submission payload. FileReference is either a
// data URL or an http(s) URL; uploads set TempKey instead.
type SubmitRequest struct {
	FileReference        string `json:"fileReference" validate:"required_without=TempKey"`
	FileName             string `json:"fileName" validate:"required,max=255"`
	SubjectDisplayName   string `json:"subjectDisplayName" validate:"max=200"`
	SubjectFirstName     string `json:"subjectFirstName" validate:"max=100"`
	SubjectLastName      string `json:"subjectLastName" validate:"max=100"`
	KeepOriginalNames    bool   `json:"keepOriginalNames"`
	ReplacementFirstName string `json:"replacementFirstName" validate:"max=100"`
	ReplacementLastName  string `json:"replacementLastName" validate:"max=100"`
	AuditKind            string `json:"auditKind" validate:"omitempty,oneof=care_plan daily_notes"`
	LocationID           int64  `json:"locationId" validate:"gte=0"`

	TempKey string `json:"-"`
}

// ValidationError lists rejected fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		keys = append(keys, k+"="+v)
	}
	return "validation failed: " + strings.Join(keys, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// Report is a downloadable audit report.
type Report struct {
	Data     []byte
	FileName string
	MIMEType string
}

// Service contains business logic for audit jobs.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	// MaxSourceBytes caps decoded data URL sources. Zero uses the upload default.
	MaxSourceBytes      int64
	AllowPrivateSources bool
	now                 func() time.Time
}

// NewService constructs a Service. store may be nil when uploads are disabled.
func NewService(repo Repo, store object.ObjectStore) *Service {
	return &Service{
		Repo:  repo,
		Store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates the request and inserts a pending job.
func (s *Service) Submit(ctx context.Context, owner Owner, req SubmitRequest) (Job, error) {
	if owner.TenantID <= 0 {
		return Job{}, fmt.Errorf("%w: tenant is required", ErrInvalidRequest)
	}
	if err := validateRequest(req); err != nil {
		return Job{}, err
	}

	job := Job{
		TenantID:             owner.TenantID,
		LocationID:           req.LocationID,
		Kind:                 req.AuditKind,
		SourceTempKey:        strings.TrimSpace(req.TempKey),
		FileName:             strings.TrimSpace(req.FileName),
		SubjectDisplayName:   strings.TrimSpace(req.SubjectDisplayName),
		OriginalFirstName:    strings.TrimSpace(req.SubjectFirstName),
		OriginalLastName:     strings.TrimSpace(req.SubjectLastName),
		ReplacementFirstName: strings.TrimSpace(req.ReplacementFirstName),
		ReplacementLastName:  strings.TrimSpace(req.ReplacementLastName),
		KeepOriginalNames:    req.KeepOriginalNames,
		Status:               StatusPending,
		Progress:             "Queued",
		RequestedBy:          owner.UserID,
		RequestedByEmail:     owner.Email,
	}
	if job.Kind == "" {
		job.Kind = analysis.KindCarePlan
	}
	if job.SourceTempKey == "" {
		ref := strings.TrimSpace(req.FileReference)
		switch {
		case strings.HasPrefix(ref, "data:"):
			data, err := source.DecodeDataURL(ref)
			if err != nil {
				return Job{}, &ValidationError{Fields: map[string]string{"fileReference": "data_url"}}
			}
			if int64(len(data)) > s.maxSourceBytes() {
				return Job{}, ErrSourceTooLarge
			}
			job.SourceDataURL = ref
		case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
			if !s.AllowPrivateSources {
				if err := source.CheckURL(ref); err != nil {
					return Job{}, &ValidationError{Fields: map[string]string{"fileReference": "public_http_url"}}
				}
			}
			job.SourceURL = ref
		default:
			return Job{}, &ValidationError{Fields: map[string]string{"fileReference": "data_url_or_http_url"}}
		}
	}

	id, err := s.Repo.Create(ctx, job)
	if err != nil {
		return Job{}, err
	}
	job.ID = id
	metrics.IncJobsSubmitted()
	telemetry.Info("jobs.submitted", map[string]any{
		"job_id":    id,
		"tenant_id": job.TenantID,
		"kind":      job.Kind,
		"source":    sourceKind(job),
	})
	return job, nil
}

// Upload stores the file under a temp key and submits a job pointing at it.
// The temp object is removed again if the job cannot be created.
func (s *Service) Upload(ctx context.Context, owner Owner, req SubmitRequest, data []byte) (Job, error) {
	if s.Store == nil {
		return Job{}, errors.New("object store not configured")
	}
	req.FileReference = ""
	req.TempKey = "upload"
	if err := validateRequest(req); err != nil {
		return Job{}, err
	}
	if _, err := extract.DetectFormat(data, req.FileName); err != nil {
		return Job{}, err
	}
	stored, err := s.Store.Save(ctx, util.TenantOwner(owner.TenantID), req.FileName, bytes.NewReader(data))
	if err != nil {
		return Job{}, fmt.Errorf("store upload: %w", err)
	}
	key := stored.Key
	telemetry.Info("jobs.upload_stored", map[string]any{
		"tenant_id": owner.TenantID,
		"size":      stored.Size,
		"mime_type": stored.MimeType,
	})

	req.TempKey = key
	job, err := s.Submit(ctx, owner, req)
	if err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			telemetry.Error("jobs.upload_cleanup_failed", map[string]any{"key": key, "error": delErr})
		}
		return Job{}, err
	}
	return job, nil
}

// Get returns a job if it belongs to the tenant.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Job, error) {
	job, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if job.TenantID != tenantID {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// List returns a page of the tenant's jobs, newest first.
func (s *Service) List(ctx context.Context, tenantID int64, limit, offset int) ([]Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListByTenant(ctx, tenantID, limit, offset)
}

// Delete removes a finished job and any temp source it still references.
func (s *Service) Delete(ctx context.Context, tenantID, id int64) error {
	job, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	if job.SourceTempKey != "" && s.Store != nil {
		if err := s.Store.Delete(ctx, job.SourceTempKey); err != nil {
			telemetry.Error("jobs.temp_delete_failed", map[string]any{"job_id": id, "error": err})
		}
	}
	return nil
}

// Download returns the job's report. A report purged by retention is
// rebuilt from the stored analysis and saved again.
func (s *Service) Download(ctx context.Context, tenantID, id int64) (Report, error) {
	job, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return Report{}, err
	}
	if job.Status != StatusCompleted {
		return Report{}, ErrNotReady
	}
	if len(job.ReportData) > 0 {
		return Report{Data: job.ReportData, FileName: reportFileName(job), MIMEType: report.MIMEType}, nil
	}
	if len(job.DetailedAnalysis) == 0 {
		return Report{}, ErrReportUnavailable
	}

	var a analysis.Analysis
	if err := json.Unmarshal(job.DetailedAnalysis, &a); err != nil {
		return Report{}, fmt.Errorf("decode analysis: %w", err)
	}
	auditDate := s.now()
	if job.ProcessedAt != nil {
		auditDate = *job.ProcessedAt
	}
	data, err := report.Generate(job.ReportSubject(), auditDate, a)
	if err != nil {
		return Report{}, fmt.Errorf("regenerate report: %w", err)
	}
	fileName := reportFileName(job)
	if job.ReportFileName == "" {
		fileName = report.FileName(job.ReportSubject(), auditDate)
	}
	if err := s.Repo.SaveReport(ctx, job.ID, data, fileName); err != nil {
		telemetry.Error("jobs.report_save_failed", map[string]any{"job_id": job.ID, "error": err})
	}
	metrics.IncReportsRegenerated()
	telemetry.Info("jobs.report_regenerated", map[string]any{"job_id": job.ID, "bytes": len(data)})
	return Report{Data: data, FileName: fileName, MIMEType: report.MIMEType}, nil
}

func (s *Service) maxSourceBytes() int64 {
	if s.MaxSourceBytes > 0 {
		return s.MaxSourceBytes
	}
	return defaultMaxUploadBytes
}

func validateRequest(req SubmitRequest) error {
	if err := getValidator().Struct(req); err != nil {
		verrs := map[string]string{}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				verrs[lowerFirst(fe.Field())] = fe.Tag()
			}
		}
		return &ValidationError{Fields: verrs}
	}
	return nil
}

func reportFileName(job Job) string {
	if job.ReportFileName != "" {
		return job.ReportFileName
	}
	date := job.CreatedAt
	if job.ProcessedAt != nil {
		date = *job.ProcessedAt
	}
	return report.FileName(job.ReportSubject(), date)
}

func sourceKind(job Job) string {
	switch {
	case job.SourceDataURL != "":
		return "data_url"
	case job.SourceTempKey != "":
		return "temp_key"
	case job.SourceURL != "":
		return "url"
	default:
		return "none"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
