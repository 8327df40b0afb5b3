package server

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"civicfix-backend/internal/issues"
	"civicfix-backend/internal/services/health"
	"civicfix-backend/internal/sessions"
	"civicfix-backend/internal/shared/config"
	"civicfix-backend/internal/shared/metrics"
	"civicfix-backend/internal/shared/server/middleware"
	"civicfix-backend/internal/shared/server/respond"
	"civicfix-backend/internal/tracking"
)

const (
	analyzeRoute = "/api/v1/reports/sessions/:id/analyze"

	rateGroupDefault = "DEFAULT"
	rateGroupAnalyze = "ANALYZE"
)

// RouterDeps carries the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config   config.Config
	Health   *health.Service
	Sessions *sessions.Handler
	Issues   *issues.Handler
	Tracking *tracking.Handler
	Limiter  *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Identity(false),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	registerMeRoutes(api)

	if deps.Issues != nil {
		deps.Issues.RegisterRoutes(api)
	}
	if deps.Tracking != nil {
		deps.Tracking.RegisterRoutes(api)
	}
	if deps.Sessions != nil {
		reports := api.Group("/reports",
			middleware.Identity(true),
			middleware.RateLimit(rateLimitConfig(deps.Config, deps.Limiter)),
		)
		deps.Sessions.RegisterRoutes(reports)
	}

	return r
}

func rateLimitConfig(cfg config.Config, limiter *middleware.RateLimiter) middleware.RateLimitConfig {
	perMinute := cfg.AnalyzeRatePerMin
	if perMinute <= 0 {
		perMinute = 12
	}
	return middleware.RateLimitConfig{
		DefaultGroup: rateGroupDefault,
		Limiter:      limiter,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && c.FullPath() == analyzeRoute {
				return rateGroupAnalyze
			}
			return rateGroupDefault
		},
		Rules: map[string]middleware.RateLimitRule{
			rateGroupDefault: {Rate: 10, Burst: 40},
			rateGroupAnalyze: {Rate: perMinute / 60, Burst: int(math.Max(1, math.Ceil(perMinute/4)))},
		},
	}
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
