package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"careaudit-backend/internal/jobs"
	"careaudit-backend/internal/notify"
	"careaudit-backend/internal/services/health"
	"careaudit-backend/internal/shared/auth"
	"careaudit-backend/internal/shared/config"
	"careaudit-backend/internal/shared/metrics"
	"careaudit-backend/internal/shared/server/middleware"
	"careaudit-backend/internal/shared/server/respond"
	"careaudit-backend/internal/tenants"
	"careaudit-backend/internal/worker"
)

const (
	rateGroupSubmit  = "SUBMIT"
	rateGroupPolling = "POLLING"
)

// RouterDeps are the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config        config.Config
	JobsHandler   *jobs.Handler
	NotifyHandler *notify.Handler
	WorkerStatus  *worker.StatusHandler
	Health        *health.Service
	RateLimiter   *middleware.RateLimiter
	Tenants       *tenants.Resolver
	Keys          *auth.Keys
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.IsDevLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env, deps.Keys),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupPolling,
			GroupFor:     rateGroupFor,
			Limiter:      deps.RateLimiter,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupSubmit:  {Rate: 0.5, Burst: 10, PerTenant: true},
				rateGroupPolling: {Rate: 5, Burst: 30},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	api.GET("/health", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	registerMeRoutes(api, deps.Tenants)
	if deps.JobsHandler != nil {
		deps.JobsHandler.RegisterRoutes(api)
	}
	if deps.NotifyHandler != nil {
		deps.NotifyHandler.RegisterRoutes(api)
	}
	if deps.WorkerStatus != nil {
		deps.WorkerStatus.RegisterRoutes(api)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	if c.Request.Method == http.MethodPost {
		return rateGroupSubmit
	}
	return rateGroupPolling
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
