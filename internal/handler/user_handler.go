package handler

import (
	"net/http"

	"province_quota/internal/model"
	"province_quota/internal/service"

	"github.com/gin-gonic/gin"
)

// UserHandler serves profile endpoints
type UserHandler struct {
	users service.UserService
	auth  *AuthHandler
}

// NewUserHandler creates a new UserHandler. Account creation is delegated to auth.
func NewUserHandler(users service.UserService, auth *AuthHandler) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := h.users.GetMe(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := pathID(c, "user_id")
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondError(c, err)
		return
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), actor, userID, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondError(c, err)
		return
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), actor, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterUserRoutes registers user routes. /users/create stays public.
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	users := rg.Group("/users")
	users.POST("/create", h.auth.Register)

	secured := users.Group("")
	secured.Use(authMW)
	{
		secured.GET("/me", h.GetMe)
		secured.GET("/:user_id", h.GetUser)
		secured.PUT("/:user_id/change_password", h.ChangePassword)
		secured.PUT("/:user_id/update", h.UpdateProfile)
	}
}
