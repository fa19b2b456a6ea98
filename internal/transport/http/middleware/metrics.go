package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qualgent/job-orchestrator/internal/observability"
)

// Metrics instruments HTTP request counts/latency. Mirrors the
// teacher's internal/http/middleware/metrics.go's nil-receiver guard:
// passing a nil *observability.Metrics turns this into a no-op chain
// link, matching METRICS_ENABLED=false.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.InflightInc()
		defer m.InflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.ObserveAPI(c.Request.Method, route, status, time.Since(start).Seconds())
	}
}
