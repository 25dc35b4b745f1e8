package middleware

import (
	"io"
	"log/slog"
	"net/http"

	"province_quota/internal/apperr"
	"province_quota/internal/logging"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the payload under the "error" key of every failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AbortWithError writes err as a JSON error response and stops the chain.
// Errors outside the apperr taxonomy are logged and reported as 500.
func AbortWithError(c *gin.Context, err error) {
	appErr, ok := apperr.From(err)
	if !ok {
		logging.FromContext(c.Request.Context(), nil).Error("request failed",
			slog.String("path", c.FullPath()),
			slog.Any("error", err),
		)
		appErr = apperr.ErrInternal
	}
	if appErr.HTTPCode() == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.HTTPCode(), gin.H{"error": ErrorBody{
		Code:    appErr.ErrorCode(),
		Message: appErr.Message(),
	}})
}

// Recovery turns panics into a logged 500 with the standard error body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logging.FromContext(c.Request.Context(), nil).Error("panic recovered", slog.Any("panic", recovered))
		AbortWithError(c, apperr.ErrInternal)
	})
}
