package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"careaudit-backend/internal/shared/telemetry"
)

// ErrorBody is the error envelope returned by every endpoint.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts the request with status and an ErrorResponse body.
// Client errors are logged at info, server errors at error.
func Error(c *gin.Context, status int, code, message string, details any) {
	logError(c, status, code, message, nil)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

// Internal answers 500 with a generic message and logs cause, which is
// never sent to the caller.
func Internal(c *gin.Context, message string, cause error) {
	logError(c, http.StatusInternalServerError, "internal_error", message, cause)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorBody{Code: "internal_error", Message: message},
	})
}

func logError(c *gin.Context, status int, code, message string, cause error) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"request_id": c.GetString("requestId"),
	}
	if c.Request != nil {
		fields["path"] = c.Request.URL.Path
		fields["method"] = c.Request.Method
	}
	if tenantID := c.GetInt64("tenantId"); tenantID > 0 {
		fields["tenant_id"] = tenantID
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if cause != nil {
		fields["cause"] = cause.Error()
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
		return
	}
	telemetry.Info("http.client_error", fields)
}
