package server

import (
	"time"

	"github.com/vibex365/luna-heart-guide-sub005/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLoggingMiddleware logs each HTTP request with latency and
// caller details.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		logger.Infof("HTTP %s %s status=%d latency_ms=%d client_ip=%s",
			c.Request.Method, path, status, latency.Milliseconds(), c.ClientIP())
	}
}
