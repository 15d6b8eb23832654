package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/examops/examsched-api/internal/service"
)

// Metrics returns middleware that records request counts and latencies.
// The scrape endpoint itself is excluded so it does not inflate the series.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Prefer the route template so /rooms/:id does not explode label
		// cardinality with raw IDs.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), duration)
	}
}
