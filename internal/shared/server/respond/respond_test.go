package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"careaudit-backend/internal/shared/telemetry"
)

func TestInternalHidesCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	r := gin.New()
	r.GET("/api/v1/audits", func(c *gin.Context) {
		c.Set("tenantId", int64(4))
		Internal(c, "failed to list audits", errors.New("pq: connection refused"))
	})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/audits", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "internal_error" || body.Error.Message != "failed to list audits" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Error.Details != nil {
		t.Fatalf("cause leaked into response: %v", body.Error.Details)
	}

	entries := logs.FilterMessage("http.error").All()
	if len(entries) != 1 {
		t.Fatalf("expected one error log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["cause"] != "pq: connection refused" || fields["tenant_id"] != int64(4) {
		t.Fatalf("unexpected log fields: %v", fields)
	}
}

func TestClientErrorsLogAtInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		Error(c, http.StatusNotFound, "not_found", "audit not found", nil)
	})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	entries := logs.FilterMessage("http.client_error").All()
	if len(entries) != 1 || entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected one info entry, got %v", logs.All())
	}
}

func TestAcceptedSetsLocation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/audits", func(c *gin.Context) {
		Accepted(c, "/api/v1/audits/3/status", gin.H{"jobId": 3})
	})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/audits", nil))

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	if got := resp.Header().Get("Location"); got != "/api/v1/audits/3/status" {
		t.Fatalf("unexpected location %q", got)
	}
}
