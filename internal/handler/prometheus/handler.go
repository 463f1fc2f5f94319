package prometheus

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/metrics"
)

// Handler records request metrics and exposes the application registry.
type Handler struct {
	metrics *metrics.Metrics
}

func New(m *metrics.Metrics) *Handler {
	return &Handler{metrics: m}
}

// Middleware records duration, count and failures per route template, so
// bed numbers and ids do not explode label cardinality.
func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		code := strconv.Itoa(status)
		method := c.Request.Method

		h.metrics.RequestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())
		h.metrics.RequestTotal.WithLabelValues(method, path, code).Inc()
		if status >= 400 {
			h.metrics.ErrorTotal.WithLabelValues(method, path, errorType(c, status)).Inc()
		}
	}
}

func (h *Handler) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))
}

func errorType(c *gin.Context, status int) string {
	if len(c.Errors) > 0 {
		if appErr, ok := errors.As(c.Errors.Last().Err); ok {
			switch appErr.Code {
			case errors.ErrValidation:
				return "validation"
			case errors.ErrConflict:
				return "conflict"
			case errors.ErrPrecondition:
				return "precondition"
			}
		}
	}
	switch {
	case status >= 500:
		return "server"
	default:
		return "client"
	}
}
