package equipment

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/icu-api/internal/handler"
	"github.com/jwalitptl/icu-api/internal/middleware"
	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/service/equipment"
	"github.com/jwalitptl/icu-api/pkg/httputil"
)

type Handler struct {
	service equipment.EquipmentService
}

func NewHandler(service equipment.EquipmentService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, require handler.RoleGuard) {
	items := r.Group("/equipment")
	{
		items.GET("", h.ListEquipment)
		items.GET("/:id", h.GetEquipment)

		writers := items.Group("", require(handler.RolesEquipment...))
		writers.POST("", h.CreateEquipment)
		writers.PUT("/:id", h.UpdateEquipment)
		writers.DELETE("/:id", h.DeleteEquipment)
		writers.PUT("/:id/status", h.UpdateStatus)
	}
}

func (h *Handler) CreateEquipment(c *gin.Context) {
	var req model.CreateEquipmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	item, err := h.service.CreateEquipment(c.Request.Context(), &req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, item)
}

func (h *Handler) GetEquipment(c *gin.Context) {
	id, ok := handler.ParamID(c, "equipment")
	if !ok {
		return
	}

	item, err := h.service.GetEquipment(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, item)
}

func (h *Handler) ListEquipment(c *gin.Context) {
	var filters model.EquipmentFilters
	if !handler.BindQuery(c, &filters) {
		return
	}

	items, err := h.service.ListEquipment(c.Request.Context(), &filters)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) UpdateEquipment(c *gin.Context) {
	id, ok := handler.ParamID(c, "equipment")
	if !ok {
		return
	}
	var req model.UpdateEquipmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	item, err := h.service.UpdateEquipment(c.Request.Context(), id, &req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, item)
}

func (h *Handler) DeleteEquipment(c *gin.Context) {
	id, ok := handler.ParamID(c, "equipment")
	if !ok {
		return
	}

	if err := h.service.DeleteEquipment(c.Request.Context(), id); err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"message": "Equipment deleted successfully"})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParamID(c, "equipment")
	if !ok {
		return
	}
	var req model.UpdateEquipmentStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	item, err := h.service.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, item)
}
