package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Detail  string            `json:"detail,omitempty"`
	Stack   string            `json:"stack,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondCreated sends a 201 success response
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response. Errors that are not AppErrors are
// reported as a generic 500; the underlying message is only exposed outside
// release mode.
func RespondWithError(c *gin.Context, err error) {
	status, body := ErrorBody(err)

	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   body,
	})
}

// ErrorBody converts err into a status code and the error envelope.
func ErrorBody(err error) (int, *Error) {
	if appErr, ok := apperrors.As(err); ok {
		status := appErr.StatusCode()
		body := &Error{
			Code:    status,
			Message: appErr.Message,
			Fields:  appErr.Fields,
		}
		if status == http.StatusInternalServerError {
			body.Message = "Internal server error"
		}
		if gin.Mode() != gin.ReleaseMode && appErr.Err != nil && status >= http.StatusInternalServerError {
			body.Detail = appErr.Err.Error()
		}
		return status, body
	}

	body := &Error{
		Code:    http.StatusInternalServerError,
		Message: "Internal server error",
	}
	if gin.Mode() != gin.ReleaseMode && err != nil {
		body.Detail = err.Error()
	}
	return http.StatusInternalServerError, body
}
