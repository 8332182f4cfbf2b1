package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"careaudit-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Auth("dev", nil), Logging())
	router.GET("/api/v1/audits/:id", func(c *gin.Context) {
		c.Set("jobId", int64(42))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audits/42", nil)
	req.Header.Set("X-Tenant-Id", "5")
	req.Header.Set("X-User-Id", "manager-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	entries := logs.FilterMessage("request.complete").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request.complete entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	for _, key := range []string{"request_id", "user_id", "tenant_id", "job_id", "duration_ms", "status"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if fields["user_id"] != "manager-1" {
		t.Fatalf("unexpected user_id: %v", fields["user_id"])
	}
	if fields["tenant_id"] != int64(5) {
		t.Fatalf("unexpected tenant_id: %v", fields["tenant_id"])
	}
	if fields["job_id"] != int64(42) {
		t.Fatalf("unexpected job_id: %v", fields["job_id"])
	}
}
