package notify

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"careaudit-backend/internal/shared/server/middleware"
	"careaudit-backend/internal/shared/server/respond"
)

// Handler serves the caller's in-app notifications.
type Handler struct {
	Repo Repo
}

// RegisterRoutes attaches notification routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.list)
}

func (h *Handler) list(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	items, err := h.Repo.ListForUser(c.Request.Context(), middleware.TenantIDFromContext(c), middleware.UserIDFromContext(c), limit)
	if err != nil {
		respond.Internal(c, "failed to list notifications", err)
		return
	}
	if items == nil {
		items = []Notification{}
	}
	respond.JSON(c, http.StatusOK, items)
}
