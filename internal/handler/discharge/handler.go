package discharge

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/icu-api/internal/handler"
	"github.com/jwalitptl/icu-api/internal/middleware"
	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/service/discharge"
	"github.com/jwalitptl/icu-api/pkg/export"
	"github.com/jwalitptl/icu-api/pkg/httputil"
)

// Handler serves /discharge-history.
type Handler struct {
	service discharge.DischargeService
}

func NewHandler(service discharge.DischargeService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, require handler.RoleGuard) {
	history := r.Group("/discharge-history")
	{
		history.GET("", h.ListDischarges)
		history.GET("/export", h.Export)
		history.GET("/:id", h.GetDischarge)
		history.DELETE("/:id", require(handler.RolesAdmin...), h.DeleteDischarge)
	}
}

func (h *Handler) ListDischarges(c *gin.Context) {
	var filters model.DischargeFilters
	if !handler.BindQuery(c, &filters) {
		return
	}

	records, err := h.service.ListDischarges(c.Request.Context(), &filters)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, records)
}

func (h *Handler) GetDischarge(c *gin.Context) {
	id, ok := handler.ParamID(c, "discharge record")
	if !ok {
		return
	}

	record, err := h.service.GetDischarge(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, record)
}

func (h *Handler) DeleteDischarge(c *gin.Context) {
	id, ok := handler.ParamID(c, "discharge record")
	if !ok {
		return
	}

	if err := h.service.DeleteDischarge(c.Request.Context(), id); err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"message": "Discharge record deleted successfully"})
}

// Export streams the filtered history as an xlsx attachment.
func (h *Handler) Export(c *gin.Context) {
	var filters model.DischargeFilters
	if !handler.BindQuery(c, &filters) {
		return
	}

	data, err := h.service.Export(c.Request.Context(), &filters)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	filename := fmt.Sprintf("discharge-history-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.ContentTypeXLSX, data)
}
