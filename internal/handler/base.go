package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/icu-api/internal/middleware"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/validator"
)

// Role sets used by route guards.
var (
	RolesAdmin     = []string{"admin"}
	RolesClinical  = []string{"admin", "doctor", "nurse"}
	RolesPhysician = []string{"admin", "doctor"}
	RolesEquipment = []string{"admin", "technician"}
)

// RoleGuard builds a middleware admitting only the given roles.
type RoleGuard func(roles ...string) gin.HandlerFunc

// BindJSON decodes and validates the request body. On failure the error is
// attached to the context and false is returned; the handler should return.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.Fail(c, bindError(err))
		return false
	}
	return true
}

// BindQuery decodes and validates query string filters.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		middleware.Fail(c, bindError(err))
		return false
	}
	return true
}

// ParamID parses the :id path parameter as a uuid.
func ParamID(c *gin.Context, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.Fail(c, apperrors.NewBadRequest(fmt.Sprintf("Invalid %s ID", resource), err))
		return uuid.Nil, false
	}
	return id, true
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.NewBadRequest("Request body too large", err)
	}
	if errors.Is(err, io.EOF) {
		return apperrors.NewValidation("Validation failed", map[string]string{"body": "is required"})
	}
	if fields, ok := validator.FieldErrors(err); ok {
		return apperrors.NewValidation("Validation failed", fields)
	}
	return apperrors.NewBadRequest("Invalid request", err)
}
