// Package middleware holds gin middleware that depends on shared infrastructure.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sflix/server/internal/utils/metrics"
)

// unrecordedPaths are health and scrape endpoints kept out of request metrics.
var unrecordedPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Metrics records request count, latency and in-flight gauge per route
// pattern. Unrouted requests share the "unmatched" label.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if m == nil || unrecordedPaths[route] {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
