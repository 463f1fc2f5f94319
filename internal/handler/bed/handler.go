package bed

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/icu-api/internal/handler"
	"github.com/jwalitptl/icu-api/internal/middleware"
	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/service/bed"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/httputil"
)

// Handler serves /beds. The :id segment is a bed uuid or a bed number.
type Handler struct {
	service bed.BedService
}

func NewHandler(service bed.BedService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, require handler.RoleGuard) {
	beds := r.Group("/beds")
	{
		beds.GET("", h.ListBeds)
		beds.GET("/:id", h.GetBed)
		beds.POST("", require(handler.RolesAdmin...), h.CreateBed)
		beds.PUT("/:id", require(handler.RolesAdmin...), h.UpdateBed)
		beds.DELETE("/:id", require(handler.RolesAdmin...), h.DeleteBed)
		beds.PUT("/:id/nurse", require(handler.RolesAdmin...), h.AssignNurse)

		beds.POST("/:id/assign", require(handler.RolesClinical...), h.AssignPatient)
		beds.POST("/:id/discharge", require(handler.RolesClinical...), h.DischargePatient)
		beds.PUT("/:id/status", require(handler.RolesClinical...), h.UpdateStatus)
	}
}

func (h *Handler) CreateBed(c *gin.Context) {
	var req model.CreateBedRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	bed, err := h.service.CreateBed(c.Request.Context(), &req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, bed)
}

func (h *Handler) GetBed(c *gin.Context) {
	bed, err := h.service.GetBed(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bed)
}

func (h *Handler) ListBeds(c *gin.Context) {
	var filters model.BedFilters
	if !handler.BindQuery(c, &filters) {
		return
	}

	beds, err := h.service.ListBeds(c.Request.Context(), &filters)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, beds)
}

func (h *Handler) UpdateBed(c *gin.Context) {
	var req model.UpdateBedRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	bed, err := h.service.UpdateBed(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bed)
}

func (h *Handler) DeleteBed(c *gin.Context) {
	if err := h.service.DeleteBed(c.Request.Context(), c.Param("id")); err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"message": "Bed deleted successfully"})
}

func (h *Handler) AssignPatient(c *gin.Context) {
	var req model.AssignBedRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		middleware.Fail(c, apperrors.NewBadRequest("Invalid patient ID", err))
		return
	}

	bed, err := h.service.AssignPatient(c.Request.Context(), c.Param("id"), patientID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bed)
}

func (h *Handler) DischargePatient(c *gin.Context) {
	bed, err := h.service.DischargePatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bed)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req model.UpdateBedStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	bed, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bed)
}

// AssignNurse sets or, with a null staffId, clears the bed's nurse.
func (h *Handler) AssignNurse(c *gin.Context) {
	var req model.AssignNurseRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	var staffID *uuid.UUID
	if req.StaffID != nil {
		id, err := uuid.Parse(*req.StaffID)
		if err != nil {
			middleware.Fail(c, apperrors.NewBadRequest("Invalid staff ID", err))
			return
		}
		staffID = &id
	}

	bed, err := h.service.AssignNurse(c.Request.Context(), c.Param("id"), staffID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bed)
}
