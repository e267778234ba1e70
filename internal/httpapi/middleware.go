package httpapi

import (
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID ensures every request carries an interaction id, propagated via
// the X-Request-ID header and the gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.Request.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Set("request_id", rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

// RequestLogging logs one line per completed request.
func RequestLogging(logger *slog.Logger) gin.HandlerFunc {
	log := logger.With(slog.String("component", "http"))
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("request_id", c.GetString("request_id")),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= 500:
			log.Error("request completed with server error", attrs...)
		case status >= 400:
			log.Warn("request completed with client error", attrs...)
		default:
			log.Info("request completed", attrs...)
		}
	}
}

// Recovery converts panics into a clean JSON 500 so the caller never sees an
// unhandled crash response.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	log := logger.With(slog.String("component", "http"))
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					slog.String("request_id", c.GetString("request_id")),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
					slog.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(500, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}
