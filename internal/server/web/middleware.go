package web

import (
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "gatekeeper.request_id"
)

// RequestID tags every request with an id, reusing a well-formed incoming
// X-Request-ID, and echoes it in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request once the handler chain is done.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if id, ok := CurrentIdentity(c); ok {
			args = append(args, "user_id", id.UserID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error(c.Request.Context(), "request", args...)
		case status >= 400:
			log.Warn(c.Request.Context(), "request", args...)
		default:
			log.Info(c.Request.Context(), "request", args...)
		}
	}
}
