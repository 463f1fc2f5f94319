package staff

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/icu-api/internal/handler"
	"github.com/jwalitptl/icu-api/internal/middleware"
	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/service/staff"
	"github.com/jwalitptl/icu-api/pkg/httputil"
)

type Handler struct {
	service staff.StaffService
}

func NewHandler(service staff.StaffService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, require handler.RoleGuard) {
	members := r.Group("/staff")
	{
		members.GET("", h.ListStaff)
		members.GET("/:id", h.GetStaff)

		admin := members.Group("", require(handler.RolesAdmin...))
		admin.POST("", h.CreateStaff)
		admin.PUT("/:id", h.UpdateStaff)
		admin.DELETE("/:id", h.DeleteStaff)
		admin.PUT("/:id/status", h.UpdateStatus)
		admin.PUT("/:id/schedule", h.UpdateSchedule)
	}
}

func (h *Handler) CreateStaff(c *gin.Context) {
	var req model.CreateStaffRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	member, err := h.service.CreateStaff(c.Request.Context(), &req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, member)
}

func (h *Handler) GetStaff(c *gin.Context) {
	id, ok := handler.ParamID(c, "staff")
	if !ok {
		return
	}

	member, err := h.service.GetStaff(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, member)
}

func (h *Handler) ListStaff(c *gin.Context) {
	var filters model.StaffFilters
	if !handler.BindQuery(c, &filters) {
		return
	}

	members, err := h.service.ListStaff(c.Request.Context(), &filters)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, members)
}

func (h *Handler) UpdateStaff(c *gin.Context) {
	id, ok := handler.ParamID(c, "staff")
	if !ok {
		return
	}
	var req model.UpdateStaffRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	member, err := h.service.UpdateStaff(c.Request.Context(), id, &req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, member)
}

func (h *Handler) DeleteStaff(c *gin.Context) {
	id, ok := handler.ParamID(c, "staff")
	if !ok {
		return
	}

	if err := h.service.DeleteStaff(c.Request.Context(), id); err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"message": "Staff member deleted successfully"})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParamID(c, "staff")
	if !ok {
		return
	}
	var req model.UpdateStaffStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	member, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, member)
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	id, ok := handler.ParamID(c, "staff")
	if !ok {
		return
	}
	var req model.UpdateScheduleRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	member, err := h.service.UpdateSchedule(c.Request.Context(), id, req.Schedule)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, member)
}
