package middleware

import (
	"context"
	"strings"

	"province_quota/internal/apperr"
	"province_quota/internal/model"

	"github.com/gin-gonic/gin"
)

const (
	AuthUserKey    = "authUser"
	AuthRoleKey    = "authRole"
	AuthUserObjKey = "authUserObj"
)

// TokenResolver maps an access token to its still-existing user.
type TokenResolver interface {
	ResolveAccessToken(ctx context.Context, accessToken string) (*model.User, error)
}

// JWTAuthMiddleware creates a middleware for bearer token authentication
func JWTAuthMiddleware(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			AbortWithError(c, apperr.ErrUnauthorized.WithMessage("Not authenticated"))
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			AbortWithError(c, apperr.ErrUnauthorized)
			return
		}

		user, err := resolver.ResolveAccessToken(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		// Set user information in context
		c.Set(AuthUserKey, user.ID)
		c.Set(AuthRoleKey, user.Role)
		c.Set(AuthUserObjKey, user)

		c.Next()
	}
}

// CurrentUser returns the user loaded by JWTAuthMiddleware.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(AuthUserObjKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
