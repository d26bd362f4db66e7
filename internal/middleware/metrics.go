package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meroguru/meroguru-backend/internal/metrics"
)

// RequestMetrics records latency and success for every request into the
// shared monitor. 5xx responses count as errors.
func RequestMetrics(monitor *metrics.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		monitor.RecordRequest(time.Since(start), c.Writer.Status() < 500)
	}
}
