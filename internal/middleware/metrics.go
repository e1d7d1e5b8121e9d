package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tarpaulin-lms/tarpaulin-api/internal/service"
)

// Metrics records request duration and status for every route. Unmatched
// routes are labelled by their raw path so 404s still show up.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
