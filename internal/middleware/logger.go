package middleware

import (
	"log/slog"
	"time"

	"province_quota/internal/logging"

	"github.com/gin-gonic/gin"
)

// AccessLog logs one line per request, at warn for 4xx and error for 5xx.
func AccessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("remote_ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
		}
		if userID, ok := c.Get(AuthUserKey); ok {
			fields = append(fields, slog.Any("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, slog.String("error", c.Errors.String()))
		}

		level := slog.LevelInfo
		if status >= 400 {
			level = slog.LevelWarn
		}
		if status >= 500 {
			level = slog.LevelError
		}

		logging.FromContext(c.Request.Context(), logger).LogAttrs(c.Request.Context(), level, "HTTP request", fields...)
	}
}
