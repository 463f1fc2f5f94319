package analytics

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/icu-api/internal/handler"
	"github.com/jwalitptl/icu-api/internal/middleware"
	"github.com/jwalitptl/icu-api/internal/service/analytics"
	"github.com/jwalitptl/icu-api/pkg/httputil"
)

type Handler struct {
	service analytics.AnalyticsService
}

func NewHandler(service analytics.AnalyticsService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, _ handler.RoleGuard) {
	r.GET("/analytics", h.GetAnalytics)
}

func (h *Handler) GetAnalytics(c *gin.Context) {
	result, err := h.service.GetAnalytics(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}
