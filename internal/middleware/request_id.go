package middleware

import (
	"log/slog"

	"province_quota/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderXRequestID = "X-Request-Id"
	RequestIDKey     = "requestID"
)

// RequestID extracts or generates a request ID and stores a request-scoped
// logger in the request context.
func RequestID(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(HeaderXRequestID, requestID)

		reqLogger := logger.With(slog.String("request_id", requestID))
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, reqLogger)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
