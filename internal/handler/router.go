package handler

import (
	"context"
	"log/slog"
	"net/http"

	"province_quota/internal/middleware"
	"province_quota/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps bundles what the HTTP layer needs.
type RouterDeps struct {
	Auth      service.AuthService
	Users     service.UserService
	Provinces service.ProvinceService
	Quota     service.QuotaService
	Store     Pinger
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

// NewRouter wires middleware and every route group under /v1.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(deps.Logger),
		middleware.AccessLog(deps.Logger),
		middleware.Recovery(),
	)

	jwtAuthMW := middleware.JWTAuthMiddleware(deps.Auth)
	adminRoleMW := middleware.AdminMiddleware()

	authHandler := NewAuthHandler(deps.Auth)
	userHandler := NewUserHandler(deps.Users, authHandler)
	provinceHandler := NewProvinceHandler(deps.Provinces)
	userProvinceHandler := NewUserProvinceHandler(deps.Quota)

	v1 := router.Group("/v1")
	authHandler.RegisterAuthRoutes(v1)
	userHandler.RegisterUserRoutes(v1, jwtAuthMW)
	provinceHandler.RegisterProvinceRoutes(v1, jwtAuthMW, adminRoleMW)
	userProvinceHandler.RegisterUserProvinceRoutes(v1, jwtAuthMW, adminRoleMW)

	router.GET("/health", func(c *gin.Context) {
		if err := deps.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	router.NoRoute(func(c *gin.Context) {
		respondError(c, errNoRoute)
	})

	return router
}
