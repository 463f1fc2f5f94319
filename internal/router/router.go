package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/icu-api/internal/handler"
	"github.com/jwalitptl/icu-api/internal/handler/health"
	"github.com/jwalitptl/icu-api/internal/handler/prometheus"
	"github.com/jwalitptl/icu-api/internal/middleware"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
)

// Handler is a resource mounted under the authenticated /api group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup, handler.RoleGuard)
}

// PublicHandler also mounts routes that need no token.
type PublicHandler interface {
	Handler
	RegisterPublicRoutes(*gin.RouterGroup)
}

type Router struct {
	engine    *gin.Engine
	config    RouterConfig
	auth      *middleware.AuthMiddleware
	authH     PublicHandler
	resources []Handler
	health    *health.Handler
	metrics   *prometheus.Handler
}

type RouterConfig struct {
	// ExposeErrors adds panic stacks to 500 responses.
	ExposeErrors     bool
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
	RateLimitEnabled bool
	RateLimit        middleware.RateLimiterConfig
	CORSConfig       middleware.CORSConfig
	HSTS             bool
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH PublicHandler,
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	config RouterConfig,
	resources ...Handler,
) *Router {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	r := &Router{
		engine:    engine,
		config:    config,
		auth:      auth,
		authH:     authH,
		resources: resources,
		health:    healthH,
		metrics:   metricsH,
	}

	security := middleware.DefaultSecurityConfig()
	security.HSTS = config.HSTS

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if config.MaxBodyBytes > 0 {
		sizeLimit.MaxBodySize = config.MaxBodyBytes
	}

	// Core middlewares, outermost first. Recovery sits inside the logger
	// and metrics so recovered panics are recorded as 500s.
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		metricsH.Middleware(),
		middleware.Recovery(config.ExposeErrors),
		middleware.SecurityHeaders(security),
		middleware.CORS(config.CORSConfig),
		middleware.Compress(middleware.DefaultCompressConfig()),
		middleware.ErrorHandler(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.SizeLimit(sizeLimit),
	)

	engine.NoRoute(func(c *gin.Context) {
		middleware.Fail(c, apperrors.NewNotFound("Route", nil))
	})
	engine.NoMethod(func(c *gin.Context) {
		middleware.Fail(c, apperrors.NewBadRequest("Method not allowed", nil))
	})

	return r
}

func (r *Router) Setup() {
	r.health.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", r.metrics.Handler())

	api := r.engine.Group("/api")
	api.Use(middleware.Cache(middleware.DefaultCacheConfig()))
	if r.config.RateLimitEnabled {
		api.Use(middleware.NewRateLimiter(r.config.RateLimit).RateLimit())
	}

	r.authH.RegisterPublicRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.authH.RegisterRoutes(protected, r.auth.RequireRoles)
	for _, h := range r.resources {
		h.RegisterRoutes(protected, r.auth.RequireRoles)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
