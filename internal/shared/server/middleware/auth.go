package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"careaudit-backend/internal/shared/auth"
	"careaudit-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
	tenantIDKey  = "tenantId"
	roleKey      = "role"
)

var publicPaths = map[string]struct{}{
	"/api/v1/health": {},
	"/metrics":       {},
}

// Auth validates bearer JWTs against keys and stores identity in context.
// A nil keys rejects every bearer token. In dev-like environments
// X-Tenant-Id / X-User-Id headers are accepted instead.
func Auth(env string, keys *auth.Keys) gin.HandlerFunc {
	devLike := env == "dev" || env == "local"
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if _, ok := publicPaths[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			if keys == nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			claims, err := keys.Verify(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			c.Set(userIDKey, claims.Subject)
			c.Set(tenantIDKey, claims.TenantID)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(userNameKey, claims.Name)
			}
			if claims.Role != "" {
				c.Set(roleKey, claims.Role)
			}
			c.Next()
			return
		}

		if devLike {
			tenantID, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader("X-Tenant-Id")), 10, 64)
			userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
			if err == nil && tenantID > 0 && userID != "" {
				c.Set(userIDKey, userID)
				c.Set(tenantIDKey, tenantID)
				if email := strings.TrimSpace(c.GetHeader("X-User-Email")); email != "" {
					c.Set(userEmailKey, email)
				}
				c.Next()
				return
			}
		}

		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// TenantIDFromContext fetches the tenant ID set by the auth middleware.
func TenantIDFromContext(c *gin.Context) int64 {
	if c == nil {
		return 0
	}
	return c.GetInt64(tenantIDKey)
}

// UserNameFromContext fetches the display name carried by the token, if any.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userNameKey)
}

// RoleFromContext returns the caller's role claim, if any.
func RoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(roleKey)
}
