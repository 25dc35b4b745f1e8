package handler

import (
	"net/http"

	"province_quota/internal/model"
	"province_quota/internal/service"

	"github.com/gin-gonic/gin"
)

// UserProvinceHandler serves target-province selection
type UserProvinceHandler struct {
	service service.QuotaService
}

func NewUserProvinceHandler(s service.QuotaService) *UserProvinceHandler {
	return &UserProvinceHandler{service: s}
}

func (h *UserProvinceHandler) MyQuota(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondError(c, err)
		return
	}
	quota, err := h.service.ComputeQuota(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quota)
}

func (h *UserProvinceHandler) MyProvinces(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondError(c, err)
		return
	}
	provinces, err := h.service.ListMyProvinces(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, provinces)
}

func (h *UserProvinceHandler) AddTargetProvince(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req model.AddUserProvinceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	result, err := h.service.AddTargetProvince(c.Request.Context(), actor.UserID, req.ProvinceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *UserProvinceHandler) RemoveTargetProvince(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondError(c, err)
		return
	}
	provinceID, err := pathID(c, "province_id")
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.service.RemoveTargetProvince(c.Request.Context(), actor.UserID, provinceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *UserProvinceHandler) AvailableProvinces(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.service.ListAvailableProvinces(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *UserProvinceHandler) UserProvinces(c *gin.Context) {
	userID, err := pathID(c, "user_id")
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.service.GetUserProvinces(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RegisterUserProvinceRoutes registers quota routes. All of them require authentication.
func (h *UserProvinceHandler) RegisterUserProvinceRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/user-provinces")
	g.Use(authMW)
	{
		g.GET("/my-quota", h.MyQuota)
		g.GET("/my-provinces", h.MyProvinces)
		g.POST("/target-province", h.AddTargetProvince)
		g.DELETE("/target-province/:province_id", h.RemoveTargetProvince)
		g.GET("/available-provinces", h.AvailableProvinces)
		g.GET("/:user_id/provinces", adminMW, h.UserProvinces)
	}
}
