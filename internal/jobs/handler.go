package jobs

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"careaudit-backend/internal/extract"
	"careaudit-backend/internal/shared/server/middleware"
	"careaudit-backend/internal/shared/server/respond"
)

const defaultMaxUploadBytes = 25 << 20

// Handler wires HTTP handlers to the jobs service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches audit routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/audits", h.submit)
	rg.POST("/audits/upload", h.upload)
	rg.GET("/audits", h.list)
	rg.GET("/audits/:id", h.result)
	rg.GET("/audits/:id/status", h.status)
	rg.GET("/audits/:id/report", h.download)
	rg.DELETE("/audits/:id", h.remove)
}

type statusResponse struct {
	ID           int64      `json:"id"`
	Status       string     `json:"status"`
	Progress     string     `json:"progress"`
	Score        *int       `json:"score,omitempty"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty"`
}

type resultResponse struct {
	statusResponse
	AuditKind          string          `json:"auditKind"`
	FileName           string          `json:"fileName"`
	SubjectDisplayName string          `json:"subjectDisplayName"`
	CreatedAt          time.Time       `json:"createdAt"`
	DetailedAnalysis   json.RawMessage `json:"detailedAnalysis"`
}

type reportResponse struct {
	BinaryData string `json:"binaryData"`
	Filename   string `json:"filename"`
	MIMEType   string `json:"mimeType"`
}

func (h *Handler) submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes/3*4+64<<10)
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "request body exceeds limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.TempKey = ""
	job, err := h.Svc.Submit(c.Request.Context(), ownerFromContext(c), req)
	if err != nil {
		h.writeSubmitError(c, err)
		return
	}
	respond.Accepted(c, statusPath(job.ID), gin.H{"jobId": job.ID, "status": job.Status})
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fh.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file could not be read", nil)
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, h.MaxUploadBytes+1))
	f.Close()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file could not be read", nil)
		return
	}
	if int64(len(data)) > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
		return
	}

	fileName := strings.TrimSpace(c.PostForm("fileName"))
	if fileName == "" {
		fileName = fh.Filename
	}
	locationID, _ := strconv.ParseInt(c.PostForm("locationId"), 10, 64)
	keep, _ := strconv.ParseBool(c.PostForm("keepOriginalNames"))
	req := SubmitRequest{
		FileName:             fileName,
		SubjectDisplayName:   c.PostForm("subjectDisplayName"),
		SubjectFirstName:     c.PostForm("subjectFirstName"),
		SubjectLastName:      c.PostForm("subjectLastName"),
		KeepOriginalNames:    keep,
		ReplacementFirstName: c.PostForm("replacementFirstName"),
		ReplacementLastName:  c.PostForm("replacementLastName"),
		AuditKind:            c.PostForm("auditKind"),
		LocationID:           locationID,
	}

	job, err := h.Svc.Upload(c.Request.Context(), ownerFromContext(c), req, data)
	if err != nil {
		h.writeSubmitError(c, err)
		return
	}
	respond.Accepted(c, statusPath(job.ID), gin.H{"jobId": job.ID, "status": job.Status})
}

func (h *Handler) status(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	respond.JSON(c, http.StatusOK, toStatus(job))
}

func (h *Handler) result(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	resp := resultResponse{
		statusResponse:     toStatus(job),
		AuditKind:          job.Kind,
		FileName:           job.FileName,
		SubjectDisplayName: job.ReportSubject(),
		CreatedAt:          job.CreatedAt,
		DetailedAnalysis:   job.DetailedAnalysis,
	}
	if len(resp.DetailedAnalysis) == 0 {
		resp.DetailedAnalysis = json.RawMessage("null")
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rep, err := h.Svc.Download(c.Request.Context(), middleware.TenantIDFromContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "audit not found", nil)
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, "not_ready", "audit has not completed", nil)
		case errors.Is(err, ErrReportUnavailable):
			respond.Error(c, http.StatusGone, "report_unavailable", "report is no longer available", nil)
		default:
			respond.Internal(c, "failed to load report", err)
		}
		return
	}
	respond.JSON(c, http.StatusOK, reportResponse{
		BinaryData: base64.StdEncoding.EncodeToString(rep.Data),
		Filename:   rep.FileName,
		MIMEType:   rep.MIMEType,
	})
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	jobs, err := h.Svc.List(c.Request.Context(), middleware.TenantIDFromContext(c), limit, offset)
	if err != nil {
		respond.Internal(c, "failed to list audits", err)
		return
	}

	resp := make([]gin.H, 0, len(jobs))
	for _, j := range jobs {
		item := gin.H{
			"id":                 j.ID,
			"auditKind":          j.Kind,
			"fileName":           j.FileName,
			"subjectDisplayName": j.ReportSubject(),
			"status":             j.Status,
			"progress":           j.Progress,
			"createdAt":          j.CreatedAt,
		}
		if j.Score != nil {
			item["score"] = *j.Score
		}
		if j.ProcessedAt != nil {
			item["processedAt"] = j.ProcessedAt
		}
		resp = append(resp, item)
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	err := h.Svc.Delete(c.Request.Context(), middleware.TenantIDFromContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "audit not found", nil)
		case errors.Is(err, ErrNotTerminal):
			respond.Error(c, http.StatusConflict, "in_progress", "audit is still being processed", nil)
		default:
			respond.Internal(c, "failed to delete audit", err)
		}
		return
	}
	respond.NoContent(c)
}

func (h *Handler) loadJob(c *gin.Context) (Job, bool) {
	id, ok := parseID(c)
	if !ok {
		return Job{}, false
	}
	job, err := h.Svc.Get(c.Request.Context(), middleware.TenantIDFromContext(c), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "audit not found", nil)
		} else {
			respond.Internal(c, "failed to fetch audit", err)
		}
		return Job{}, false
	}
	return job, true
}

func (h *Handler) writeSubmitError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(c, http.StatusBadRequest, "validation_error", "validation failed", verr.Fields)
	case errors.Is(err, ErrSourceTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
	case errors.Is(err, ErrInvalidRequest):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, extract.ErrUnsupportedFormat):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_format", "file type is not supported", nil)
	default:
		respond.Internal(c, "failed to submit audit", err)
	}
}

func toStatus(job Job) statusResponse {
	return statusResponse{
		ID:           job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		Score:        job.Score,
		ErrorMessage: job.ErrorMessage,
		ProcessedAt:  job.ProcessedAt,
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "audit id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func ownerFromContext(c *gin.Context) Owner {
	return Owner{
		TenantID: middleware.TenantIDFromContext(c),
		UserID:   middleware.UserIDFromContext(c),
		Email:    middleware.UserEmailFromContext(c),
	}
}

func statusPath(id int64) string {
	return "/api/v1/audits/" + strconv.FormatInt(id, 10) + "/status"
}
