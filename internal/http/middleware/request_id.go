package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/catalog-backend/internal/logger"
)

const (
	ContextRequestIDKey = "requestID"
	HeaderRequestID     = "X-Request-ID"
)

// RequestID присваивает запросу идентификатор и пишет access-лог.
// Входящий X-Request-ID сохраняется, если это валидный UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, id)
		c.Header(HeaderRequestID, id)

		start := time.Now()
		c.Next()

		logger.Log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}).Info("request")
	}
}
