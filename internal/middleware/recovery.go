package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/pkg/httputil"
)

// Recovery handles panics and logs them appropriately. The stack is echoed to
// the client only when exposeStack is set.
func Recovery(exposeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()

				log.Error().
					Interface("error", err).
					Str("stack", string(stack)).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("client_ip", c.ClientIP()).
					Str("request_id", c.GetString(ContextRequestID)).
					Msg("Request panic recovered")

				body := &httputil.Error{
					Code:    http.StatusInternalServerError,
					Message: "Internal server error",
				}
				if exposeStack {
					body.Detail = fmt.Sprint(err)
					body.Stack = string(stack)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, httputil.Response{
					Success: false,
					Error:   body,
				})
			}
		}()
		c.Next()
	}
}
