package handler

import (
	"net/http"

	"province_quota/internal/model"
	"province_quota/internal/service"

	"github.com/gin-gonic/gin"
)

// ProvinceHandler serves the province catalog
type ProvinceHandler struct {
	service service.ProvinceService
}

func NewProvinceHandler(s service.ProvinceService) *ProvinceHandler {
	return &ProvinceHandler{service: s}
}

func (h *ProvinceHandler) ListProvinces(c *gin.Context) {
	provinces, err := h.service.ListProvinces(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ProvinceList{Provinces: provinces})
}

func (h *ProvinceHandler) listTier(tier model.ProvinceTier) gin.HandlerFunc {
	return func(c *gin.Context) {
		provinces, err := h.service.ListByTier(c.Request.Context(), tier)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, model.ProvinceList{Provinces: provinces})
	}
}

func (h *ProvinceHandler) GetProvince(c *gin.Context) {
	id, err := pathID(c, "province_id")
	if err != nil {
		respondError(c, err)
		return
	}
	province, err := h.service.GetProvince(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, province)
}

func (h *ProvinceHandler) GetProvinceByName(c *gin.Context) {
	province, err := h.service.GetProvinceByName(c.Request.Context(), c.Param("province_name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, province)
}

func (h *ProvinceHandler) UpdateProvince(c *gin.Context) {
	id, err := pathID(c, "province_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req model.UpdateProvinceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	province, err := h.service.UpdateProvince(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, province)
}

func (h *ProvinceHandler) DeleteProvince(c *gin.Context) {
	id, err := pathID(c, "province_id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.service.DeleteProvince(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Province deleted successfully"})
}

// RegisterProvinceRoutes registers catalog routes; edits require an admin.
func (h *ProvinceHandler) RegisterProvinceRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	provinces := rg.Group("/provinces")
	{
		provinces.GET("", h.ListProvinces)
		provinces.GET("/primary", h.listTier(model.TierPrimary))
		provinces.GET("/secondary", h.listTier(model.TierSecondary))
		provinces.GET("/name/:province_name", h.GetProvinceByName)
		provinces.GET("/:province_id", h.GetProvince)
		provinces.PUT("/:province_id", authMW, adminMW, h.UpdateProvince)
		provinces.DELETE("/:province_id", authMW, adminMW, h.DeleteProvince)
	}
}
