package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"careaudit-backend/internal/shared/server/middleware"
	"careaudit-backend/internal/shared/server/respond"
	"careaudit-backend/internal/tenants"
)

// meHandler describes the caller and whether their tenant can run audits.
type meHandler struct {
	tenants *tenants.Resolver
}

func registerMeRoutes(rg *gin.RouterGroup, resolver *tenants.Resolver) {
	h := &meHandler{tenants: resolver}
	rg.GET("/me", h.get)
}

func (h *meHandler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	tenantID := middleware.TenantIDFromContext(c)
	if userID == "" || tenantID <= 0 {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	tenant := gin.H{"id": tenantID}
	if h.tenants != nil {
		ctx := c.Request.Context()
		cred, err := h.tenants.ScoringCredential(ctx, tenantID)
		switch {
		case err == nil:
			tenant["scoringConfigured"] = true
			tenant["scoringProvider"] = cred.Provider
		case errors.Is(err, tenants.ErrMissingCredential):
			tenant["scoringConfigured"] = false
		default:
			respond.Internal(c, "failed to load tenant", err)
			return
		}
		if email := h.tenants.NotificationEmail(ctx, tenantID); email != "" {
			tenant["notificationEmail"] = email
		}
	}

	body := gin.H{"userId": userID, "tenantId": tenantID, "tenant": tenant}
	if email := middleware.UserEmailFromContext(c); email != "" {
		body["email"] = email
	}
	if name := middleware.UserNameFromContext(c); name != "" {
		body["name"] = name
	}
	respond.JSON(c, http.StatusOK, body)
}
