package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/middleware"
	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/httputil"
)

const pingTimeout = 3 * time.Second

// Handler serves the operational endpoints used by the hosting platform to
// check and warm up the database connection.
type Handler struct {
	db      repository.Database
	env     string
	started time.Time
}

func NewHandler(db repository.Database, env string) *Handler {
	return &Handler{
		db:      db,
		env:     env,
		started: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/init", h.Init)
	r.GET("/reconnect", h.Reconnect)
}

// Health reports 200 while the database answers and 503 otherwise.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check: database unreachable")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, httputil.Response{
			Success: false,
			Data:    h.status("unavailable"),
			Error: &httputil.Error{
				Code:    http.StatusServiceUnavailable,
				Message: apperrors.UnavailableMessage,
			},
		})
		return
	}
	httputil.RespondWithSuccess(c, h.status("ok"))
}

// Init warms the connection up, reconnecting only when a ping fails.
func (h *Handler) Init(c *gin.Context) {
	ctx := c.Request.Context()
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := h.db.Ping(pingCtx)
	cancel()
	if err != nil {
		if err := h.db.Reconnect(ctx); err != nil {
			middleware.Fail(c, apperrors.NewUnavailable(err))
			return
		}
	}
	httputil.RespondWithSuccess(c, h.status("initialized"))
}

// Reconnect drops the current connection and dials again.
func (h *Handler) Reconnect(c *gin.Context) {
	if err := h.db.Reconnect(c.Request.Context()); err != nil {
		middleware.Fail(c, apperrors.NewUnavailable(err))
		return
	}
	log.Info().Str("driver", h.db.Driver()).Msg("Database reconnected on request")
	httputil.RespondWithSuccess(c, h.status("reconnected"))
}

func (h *Handler) status(state string) *model.HealthStatus {
	return &model.HealthStatus{
		Status:   state,
		Env:      h.env,
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Database: h.db.Stats(),
	}
}
