// Package middleware provides the gin middleware chain: request logging and
// per-request metrics.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
)

// RequestLogging logs one line per request with method, route, status, and
// latency. Health and metrics probes are logged at debug to keep the noise
// down.
func RequestLogging(log logging.Logger) gin.HandlerFunc {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
			logging.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		switch c.Request.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			log.Debug("Request handled", fields...)
		default:
			log.Info("Request handled", fields...)
		}
	}
}
