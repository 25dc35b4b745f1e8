package middleware

import (
	"slices"

	"province_quota/internal/apperr"
	"province_quota/internal/model"

	"github.com/gin-gonic/gin"
)

// RoleMiddleware creates a middleware to check for specific user roles
func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(AuthRoleKey)
		if !exists {
			AbortWithError(c, apperr.ErrUnauthorized)
			return
		}

		userRole, ok := roleVal.(string)
		if !ok || !slices.Contains(allowedRoles, userRole) {
			AbortWithError(c, apperr.ErrForbidden)
			return
		}

		c.Next()
	}
}

// AdminMiddleware checks if the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleAdmin)
}
