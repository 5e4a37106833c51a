package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sawirricardo/remix-realworld/pkg/logging"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags every request with an id and logs its outcome
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		logger := logging.WithRequestID(id)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("Request completed", fields...)
			return
		}
		logger.Debug("Request completed", fields...)
	}
}
