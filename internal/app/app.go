package app

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/icu-api/internal/config"
	analyticsHandler "github.com/jwalitptl/icu-api/internal/handler/analytics"
	authHandler "github.com/jwalitptl/icu-api/internal/handler/auth"
	bedHandler "github.com/jwalitptl/icu-api/internal/handler/bed"
	dischargeHandler "github.com/jwalitptl/icu-api/internal/handler/discharge"
	equipmentHandler "github.com/jwalitptl/icu-api/internal/handler/equipment"
	"github.com/jwalitptl/icu-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/icu-api/internal/handler/patient"
	"github.com/jwalitptl/icu-api/internal/handler/prometheus"
	staffHandler "github.com/jwalitptl/icu-api/internal/handler/staff"
	userHandler "github.com/jwalitptl/icu-api/internal/handler/user"
	"github.com/jwalitptl/icu-api/internal/middleware"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/router"
	analyticsService "github.com/jwalitptl/icu-api/internal/service/analytics"
	authService "github.com/jwalitptl/icu-api/internal/service/auth"
	bedService "github.com/jwalitptl/icu-api/internal/service/bed"
	dischargeService "github.com/jwalitptl/icu-api/internal/service/discharge"
	equipmentService "github.com/jwalitptl/icu-api/internal/service/equipment"
	patientService "github.com/jwalitptl/icu-api/internal/service/patient"
	staffService "github.com/jwalitptl/icu-api/internal/service/staff"
	userService "github.com/jwalitptl/icu-api/internal/service/user"
	pkgauth "github.com/jwalitptl/icu-api/pkg/auth"
	"github.com/jwalitptl/icu-api/pkg/metrics"
	"github.com/jwalitptl/icu-api/pkg/security"
	"github.com/jwalitptl/icu-api/pkg/validator"
)

// Dependencies are the long-lived resources the HTTP application runs on.
// The caller owns them and closes them after the server stops.
type Dependencies struct {
	Config   *config.Config
	Store    repository.Store
	Database repository.Database
	Tokens   repository.TokenRepository
	Metrics  *metrics.Metrics
	Hasher   security.PasswordHasher
	// Now overrides the clock of the time-dependent services. Nil means
	// time.Now.
	Now func() time.Time
}

// New wires services, handlers and middleware into a ready engine.
func New(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil || deps.Store == nil || deps.Database == nil || deps.Tokens == nil {
		return nil, errors.New("app: config, store, database and token store are required")
	}
	cfg := deps.Config
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(cfg.Metrics.Namespace)
	}
	if deps.Hasher == nil {
		deps.Hasher = security.NewBcryptHasher(0)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	if err := validator.Register(); err != nil {
		return nil, err
	}

	jwtSvc, err := pkgauth.NewJWTService(pkgauth.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
	})
	if err != nil {
		return nil, err
	}

	// Initialize services
	patientSvc := patientService.NewService(deps.Store, deps.Metrics, patientService.WithClock(now))
	bedSvc := bedService.NewService(deps.Store, deps.Metrics, bedService.WithClock(now))
	staffSvc := staffService.NewService(deps.Store.Staff())
	equipmentSvc := equipmentService.NewService(deps.Store.Equipment(), equipmentService.WithClock(now))
	userSvc := userService.NewService(deps.Store.Users(), deps.Hasher)
	authSvc := authService.NewService(deps.Store.Users(), deps.Tokens, jwtSvc, deps.Hasher, authService.WithClock(now))
	analyticsSvc := analyticsService.NewService(deps.Store, analyticsService.WithClock(now))
	dischargeSvc := dischargeService.NewService(deps.Store.Discharges())

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc, deps.Tokens, deps.Store.Users())

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		cors.AllowOrigins = cfg.CORS.AllowedOrigins
	}

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc, userSvc),
		health.NewHandler(deps.Database, cfg.Env),
		prometheus.New(deps.Metrics),
		router.RouterConfig{
			ExposeErrors:     !cfg.IsProduction(),
			RequestTimeout:   cfg.Server.RequestTimeout,
			MaxBodyBytes:     cfg.Server.MaxBodyBytes,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit: middleware.RateLimiterConfig{
				RPS:     cfg.RateLimit.RequestsPerSecond,
				Burst:   cfg.RateLimit.Burst,
				IdleTTL: cfg.RateLimit.IdleTTL,
			},
			CORSConfig: cors,
			HSTS:       cfg.IsProduction(),
		},
		patientHandler.NewHandler(patientSvc),
		bedHandler.NewHandler(bedSvc),
		staffHandler.NewHandler(staffSvc),
		equipmentHandler.NewHandler(equipmentSvc),
		userHandler.NewHandler(userSvc),
		analyticsHandler.NewHandler(analyticsSvc),
		dischargeHandler.NewHandler(dischargeSvc),
	)
	r.Setup()

	return r.Engine(), nil
}
