package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/icu-api/pkg/httputil"
)

// ErrorHandler renders the last error attached with c.Error as the error
// envelope, unless a response was already written.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		httputil.RespondWithError(c, c.Errors.Last().Err)
	}
}

// Fail attaches err to the context and stops the chain. ErrorHandler renders
// it on the way out.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
