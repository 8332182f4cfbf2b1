package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"careaudit-backend/internal/shared/metrics"
	"careaudit-backend/internal/shared/server/middleware"
	"careaudit-backend/internal/shared/server/respond"
)

// NewStatusRouter serves the worker's own status, health and metrics.
func NewStatusRouter(w *Worker) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/status", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, w.Snapshot())
	})
	r.GET("/metrics", metrics.Handler())
	return r
}

// NewStatusServer wraps NewStatusRouter in an http.Server listening on addr.
func NewStatusServer(addr string, w *Worker) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewStatusRouter(w),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// StatusLister lists published worker snapshots.
type StatusLister interface {
	List(ctx context.Context) ([]Status, error)
}

// StatusHandler exposes worker snapshots on the API.
type StatusHandler struct {
	Reader StatusLister
}

// RegisterRoutes attaches worker status routes to the router group.
func (h *StatusHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/worker/status", h.status)
}

func (h *StatusHandler) status(c *gin.Context) {
	if h.Reader == nil {
		respond.Error(c, http.StatusServiceUnavailable, "unavailable", ErrStatusUnavailable.Error(), nil)
		return
	}
	workers, err := h.Reader.List(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrStatusUnavailable) {
			respond.Error(c, http.StatusServiceUnavailable, "unavailable", err.Error(), nil)
			return
		}
		respond.Internal(c, "failed to read worker status", err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"workers": workers})
}
